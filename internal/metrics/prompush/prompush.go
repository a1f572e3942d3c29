// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A normalization run is a batch job, so metrics are pushed
// once at the end of the run (Flush) instead of being scraped.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"imdbnorm/internal/metrics"
)

// Config holds Pushgateway backend configuration.
type Config struct {
	// GatewayURL is the Pushgateway base URL, e.g. http://pushgateway:9091.
	GatewayURL string
	// Job is the Pushgateway "job" grouping key. Defaults to "imdbnorm".
	Job string
	// Grouping adds further grouping labels, e.g. {"run_id": "..."}, so
	// concurrent runs do not overwrite each other.
	Grouping map[string]string
}

type counterSpec struct {
	name   string
	help   string
	labels []string
}

var counterSpecs = []counterSpec{
	{metrics.StageTotal, "Pipeline stage executions by stage and status.", []string{"stage", "status"}},
	{metrics.RecordsTotal, "Raw records per source table and outcome (read, accepted, dropped, malformed).", []string{"table", "outcome"}},
	{metrics.ChunksTotal, "Chunk files written by the splitter per table.", []string{"table"}},
	{metrics.LoadedRowsTotal, "Rows bulk-loaded per table.", []string{"table"}},
	{metrics.BatchesTotal, "Bulk-load batches flushed per table.", []string{"table"}},
}

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	cfg Config
	reg *prometheus.Registry

	counters      map[string]*prometheus.CounterVec
	counterLabels map[string][]string
	stageDuration *prometheus.SummaryVec
}

// NewBackend registers the run's collectors on a private registry.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if cfg.Job == "" {
		cfg.Job = "imdbnorm"
	}

	b := &Backend{
		cfg:           cfg,
		reg:           prometheus.NewRegistry(),
		counters:      make(map[string]*prometheus.CounterVec, len(counterSpecs)),
		counterLabels: make(map[string][]string, len(counterSpecs)),
	}
	for _, s := range counterSpecs {
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: s.name, Help: s.help}, s.labels)
		if err := b.reg.Register(cv); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", s.name, err)
		}
		b.counters[s.name] = cv
		b.counterLabels[s.name] = s.labels
	}

	b.stageDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StageDurationSeconds,
			Help:       "Duration of pipeline stages in seconds, by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	if err := b.reg.Register(b.stageDuration); err != nil {
		return nil, fmt.Errorf("prompush: register stage summary: %w", err)
	}
	return b, nil
}

func values(names []string, labels metrics.Labels) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = labels[n]
	}
	return out
}

// IncCounter adds delta to a known counter. Unknown names are ignored; the
// "job" label is carried by the push grouping key instead.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	cv, ok := b.counters[name]
	if !ok || cv == nil {
		return
	}
	cv.WithLabelValues(values(b.counterLabels[name], labels)...).Add(delta)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StageDurationSeconds || b.stageDuration == nil {
		return
	}
	b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway, replacing the metrics of the
// same grouping key.
func (b *Backend) Flush() error {
	p := push.New(b.cfg.GatewayURL, b.cfg.Job).Gatherer(b.reg)
	for k, v := range b.cfg.Grouping {
		p = p.Grouping(k, v)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.cfg.GatewayURL, err)
	}
	return nil
}
