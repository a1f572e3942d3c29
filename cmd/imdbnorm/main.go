// Command imdbnorm normalizes IMDb-style TSV dumps, splits the normalized
// tables into chunks and bulk-loads them into a database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "imdbnorm/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "imdbnorm: %v\n", err)
		stop()
		os.Exit(1)
	}
}
