// Package storage holds the backend-agnostic side of the database load: the
// Repository contract, the kind -> factory registry the backends fill in at
// init time, per-kind DDL bootstrapping and the batching loader.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures one backend for one destination table.
type Config struct {
	Kind string // postgres, mssql, mysql, sqlite
	DSN  string

	// Table is the destination, optionally schema qualified ("imdb.film").
	Table      string
	Columns    []string
	KeyColumns []string
}

// Repository is what the loader needs from a backend.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns and reports how many rows
	// were written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs one statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind, replacing any earlier
// registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository with the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
