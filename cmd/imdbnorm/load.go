package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"imdbnorm/internal/load"
)

func newLoadCommand(a *app) *cobra.Command {
	var (
		kind, dsn string
		batchSize int
		workers   int
		tables    []string
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Bulk-load normalized tables into a database.",
		Long: `load creates every normalized table in the configured database when it
does not exist yet and bulk-inserts the table's chunks (or its unsplit file)
with up to storage.workers concurrent readers.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			opts := load.FromConfig(a.cfg)
			if kind != "" {
				opts.Kind = kind
			}
			if dsn != "" {
				opts.DSN = dsn
			}
			if batchSize > 0 {
				opts.BatchSize = batchSize
			}
			if workers > 0 {
				opts.Workers = workers
			}
			opts.Tables = tables

			results, err := load.Run(cmd.Context(), opts)
			for _, r := range results {
				fmt.Fprintf(a.stdout, "%s\tfiles=%d rows=%d batches=%d dur=%s\n",
					r.Table, r.Files, r.Rows, r.Batches, r.Duration.Truncate(time.Millisecond))
			}
			return err
		}),
	}
	f := cmd.Flags()
	f.StringVar(&kind, "kind", "", "storage kind (overrides storage.kind)")
	f.StringVar(&dsn, "dsn", "", "database DSN (overrides storage.dsn)")
	f.IntVar(&batchSize, "batch-size", 0, "rows per bulk insert (overrides storage.batch_size)")
	f.IntVar(&workers, "workers", 0, "concurrent chunk readers per table (overrides storage.workers)")
	f.StringSliceVar(&tables, "tables", nil, "tables to load, in order (default: all)")
	return cmd
}
