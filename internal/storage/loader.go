package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// rows (aligned to columns) and return the number of rows inserted. It must
// cancel promptly when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// Result is what one LoadBatches call wrote.
type Result struct {
	Rows    int64
	Batches int64
}

// progressEvery throttles the per-batch progress line.
var progressEvery = 5 * time.Second

// LoadBatches drains typed rows from in, groups them into batches of
// batchSize and calls copyFn for each non-empty batch. It returns what was
// written and the first error encountered. label names the stream in logs
// (usually "table/chunk").
//
// Cancellation: returns ctx.Err() when canceled. A progress line with running
// totals and rows/sec is logged at most every few seconds.
func LoadBatches(
	ctx context.Context,
	label string,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (Result, error) {
	if batchSize <= 0 {
		return Result{}, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return Result{}, fmt.Errorf("copyFn must not be nil")
	}

	var (
		res         Result
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
		every       = rate.Sometimes{Interval: progressEvery}
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		res.Rows += n

		// Reuse allocated slice; keep capacity to avoid churn.
		batch = batch[:0]

		if err != nil {
			log.Printf("loader: %s: COPY failed after=%d total=%d err=%v", label, n, res.Rows, err)
			return err
		}
		res.Batches++

		every.Do(func() {
			now := time.Now()
			sinceLast := now.Sub(lastFlushTS)
			rps := float64(0)
			if sinceLast > 0 {
				rps = float64(res.Rows-lastTotal) / sinceLast.Seconds()
			}
			log.Printf(
				"batch #%d: %s rps=%.0f total_inserted=%d elapsed=%s",
				res.Batches, label, rps, res.Rows, now.Sub(start).Truncate(time.Millisecond),
			)
			lastFlushTS = now
			lastTotal = res.Rows
		})
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return res, err
				}
				return res, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return res, err
				}
			}
		}
	}
}
