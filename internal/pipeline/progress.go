package pipeline

import (
	"log"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/time/rate"
)

// Event is one progress update of a parse pass.
type Event struct {
	Table   string
	Percent float64 // 0-100 of the source bytes consumed
	Read    int64
	Done    bool
}

// Sink receives progress events. Implementations are called from the
// pipeline goroutine only.
type Sink interface {
	Report(Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Report(Event) {}

// LogSink logs progress lines, at most one per Interval per table plus the
// final line of every pass. Each line carries the resident memory of the
// process since the accumulators grow with the input.
type LogSink struct {
	Interval time.Duration

	table string
	every *rate.Sometimes
	proc  *process.Process
}

// NewLogSink returns a LogSink throttled to one line per interval.
func NewLogSink(interval time.Duration) *LogSink {
	s := &LogSink{Interval: interval}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}
	return s
}

func (s *LogSink) Report(e Event) {
	if e.Table != s.table {
		s.table = e.Table
		s.every = &rate.Sometimes{First: 1, Interval: s.Interval}
	}
	if e.Done {
		log.Printf("progress: table=%s 100%% read=%s rss=%s done", e.Table, humanize.Comma(e.Read), s.rss())
		return
	}
	s.every.Do(func() {
		log.Printf("progress: table=%s %3.0f%% read=%s rss=%s", e.Table, e.Percent, humanize.Comma(e.Read), s.rss())
	})
}

func (s *LogSink) rss() string {
	if s.proc == nil {
		return "n/a"
	}
	mi, err := s.proc.MemoryInfo()
	if err != nil {
		return "n/a"
	}
	return humanize.Bytes(mi.RSS)
}

// tracker forwards decoder progress to a sink once per percentage point.
type tracker struct {
	table string
	sink  Sink
	last  float64
}

func newTracker(table string, sink Sink) *tracker {
	if sink == nil {
		sink = NopSink{}
	}
	return &tracker{table: table, sink: sink, last: -1}
}

func (t *tracker) update(pct float64, read int64) {
	p := math.Floor(pct)
	if p <= t.last {
		return
	}
	t.last = p
	t.sink.Report(Event{Table: t.table, Percent: pct, Read: read})
}

func (t *tracker) done(read int64) {
	t.sink.Report(Event{Table: t.table, Percent: 100, Read: read, Done: true})
}
