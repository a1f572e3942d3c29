// Package load bulk-loads normalized output into a database. Each table is
// created if missing, then its files (the split chunks, or the unsplit file)
// are streamed concurrently through storage.LoadBatches.
package load

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"imdbnorm/internal/config"
	"imdbnorm/internal/metrics"
	"imdbnorm/internal/output"
	"imdbnorm/internal/schema"
	"imdbnorm/internal/storage"
)

// Options configure one load.
type Options struct {
	Job    string
	Kind   string
	DSN    string
	Schema string // optional; qualifies every table name

	Layout    output.Layout
	BatchSize int
	Workers   int

	// Tables to load, in order. Empty loads every schema table.
	Tables []string
}

// FromConfig builds load options from a loaded configuration.
func FromConfig(c config.Config) Options {
	return Options{
		Job:       c.Job,
		Kind:      c.Storage.Kind,
		DSN:       c.Storage.DSN,
		Schema:    c.Storage.Schema,
		Layout:    output.Layout{Dir: c.OutputDir, Ext: c.OutputExtension, Delim: c.OutputDelimiter},
		BatchSize: c.Storage.BatchSize,
		Workers:   c.Storage.Workers,
	}
}

// Result is what was loaded into one table.
type Result struct {
	Table    string
	Files    int
	Rows     int64
	Batches  int64
	Duration time.Duration
}

// newRepositoryFn is a test seam.
var newRepositoryFn = storage.New

// Run loads every table of opts in order and stops at the first table that
// fails.
func Run(ctx context.Context, opts Options) ([]Result, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0")
	}
	d, ok := storage.LookupDDL(opts.Kind)
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %v)", opts.Kind, storage.ListKinds())
	}
	workers := opts.Workers
	if workers <= 0 || d.SingleWriter {
		workers = 1
	}
	tables := opts.Tables
	if len(tables) == 0 {
		tables = schema.TableNames()
	}

	log.Printf("load: kind=%s tables=%d workers=%d batch=%d", opts.Kind, len(tables), workers, opts.BatchSize)
	var results []Result
	for _, name := range tables {
		t, ok := schema.Lookup(name)
		if !ok {
			return results, fmt.Errorf("unknown table %q", name)
		}
		start := time.Now()
		res, err := loadTable(ctx, opts, t, workers)
		res.Duration = time.Since(start)
		metrics.RecordStage(opts.Job, "load_"+name, err, res.Duration)
		metrics.RecordLoaded(opts.Job, name, res.Rows, res.Batches)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("load %s: %w", name, err)
		}
		log.Printf("load: table=%s files=%d rows=%d batches=%d dur=%s",
			name, res.Files, res.Rows, res.Batches, res.Duration.Truncate(time.Millisecond))
	}
	return results, nil
}

func prefix(schemaName string) string {
	if schemaName == "" {
		return ""
	}
	return schemaName + "."
}

func loadTable(ctx context.Context, opts Options, t schema.Table, workers int) (Result, error) {
	res := Result{Table: t.Name}
	files, err := opts.Layout.Files(t.Name)
	if err != nil {
		return res, err
	}
	res.Files = len(files)

	cols := t.ColumnNames()
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:       opts.Kind,
		DSN:        opts.DSN,
		Table:      prefix(opts.Schema) + t.Name,
		Columns:    cols,
		KeyColumns: t.Key,
	})
	if err != nil {
		return res, err
	}
	defer repo.Close()

	if err := storage.EnsureTable(ctx, opts.Kind, repo, t, prefix(opts.Schema)); err != nil {
		return res, err
	}

	per := make([]storage.Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			r, err := loadFile(gctx, opts, t, repo, path)
			per[i] = r
			return err
		})
	}
	err = g.Wait()
	for _, r := range per {
		res.Rows += r.Rows
		res.Batches += r.Batches
	}
	return res, err
}

// loadFile streams one file into repo: a reader goroutine converts lines to
// typed rows and LoadBatches drains them.
func loadFile(ctx context.Context, opts Options, t schema.Table, repo storage.Repository, path string) (storage.Result, error) {
	rows := make(chan []any, opts.BatchSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rows)
		return output.ScanFile(gctx, path, opts.Layout.Delim, func(fields []string) error {
			row, err := Convert(t, fields)
			if err != nil {
				return err
			}
			select {
			case rows <- row:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var res storage.Result
	g.Go(func() error {
		var err error
		res, err = storage.LoadBatches(gctx, t.Name+"/"+filepath.Base(path), t.ColumnNames(), rows, opts.BatchSize, repo.CopyFrom)
		return err
	})

	err := g.Wait()
	return res, err
}

// ErrConvert marks a field that does not match its column kind.
var ErrConvert = errors.New("convert field")

// Convert turns one output row into typed values for t's columns. An empty
// field of a nullable column becomes nil (SQL NULL).
func Convert(t schema.Table, fields []string) ([]any, error) {
	if len(fields) != len(t.Columns) {
		return nil, fmt.Errorf("%w: %s has %d columns, row has %d fields", ErrConvert, t.Name, len(t.Columns), len(fields))
	}
	out := make([]any, len(fields))
	for i, c := range t.Columns {
		v := fields[i]
		if v == "" && c.Nullable {
			continue
		}
		switch c.Kind {
		case schema.Int:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s=%q: %v", ErrConvert, t.Name, c.Name, v, err)
			}
			out[i] = n
		case schema.Real:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s=%q: %v", ErrConvert, t.Name, c.Name, v, err)
			}
			out[i] = f
		default:
			out[i] = v
		}
	}
	return out, nil
}
