// Package metrics provides a small, backend-agnostic abstraction for recording
// run metrics: stage timings, per-table record outcomes, split chunks and
// loaded rows.
//
// The package exposes a narrow Backend interface and a global, pluggable
// backend that defaults to a no-op, so instrumentation is always safe to call
// even when no metrics system is configured. Concrete systems live in
// subpackages (prompush, datadog).
package metrics

import (
	"sync/atomic"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends. Implementations
// must be safe for concurrent use: loader workers record from several
// goroutines.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// Metric names.
const (
	StageTotal           = "imdbnorm_stage_total"
	StageDurationSeconds = "imdbnorm_stage_duration_seconds"
	RecordsTotal         = "imdbnorm_records_total"
	ChunksTotal          = "imdbnorm_chunks_total"
	LoadedRowsTotal      = "imdbnorm_loaded_rows_total"
	BatchesTotal         = "imdbnorm_batches_total"
)

// Record outcomes used with RecordRecords.
const (
	OutcomeRead      = "read"
	OutcomeAccepted  = "accepted"
	OutcomeDropped   = "dropped"
	OutcomeMalformed = "malformed"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

type holder struct{ b Backend }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{nopBackend{}}) }

func backend() Backend { return current.Load().b }

// SetBackend installs a concrete backend. Passing nil restores the no-op.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	current.Store(&holder{b})
}

// Flush delegates to the current backend.
func Flush() error {
	return backend().Flush()
}

// RecordStage measures latency and success/failure of one pipeline stage
// (parse_film, split, load, ...).
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "stage": stage, "status": status}
	b := backend()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDurationSeconds, d.Seconds(), lbls)
}

// RecordRecords adds delta records of table with the given outcome.
func RecordRecords(job, table, outcome string, delta int64) {
	if delta <= 0 {
		return
	}
	backend().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "table": table, "outcome": outcome})
}

// RecordChunks counts the chunk files written for table.
func RecordChunks(job, table string, delta int) {
	if delta <= 0 {
		return
	}
	backend().IncCounter(ChunksTotal, float64(delta), Labels{"job": job, "table": table})
}

// RecordLoaded counts rows and batches bulk-loaded into table.
func RecordLoaded(job, table string, rows, batches int64) {
	lbls := Labels{"job": job, "table": table}
	if rows > 0 {
		backend().IncCounter(LoadedRowsTotal, float64(rows), lbls)
	}
	if batches > 0 {
		backend().IncCounter(BatchesTotal, float64(batches), lbls)
	}
}
