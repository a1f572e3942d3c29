package main

import (
	"fmt"
	"log"

	"imdbnorm/internal/config"
	"imdbnorm/internal/metrics"
	"imdbnorm/internal/metrics/datadog"
	"imdbnorm/internal/metrics/prompush"
)

// installMetrics sets the global metrics backend named by c.Metrics and
// returns the function that flushes it at the end of the command.
func installMetrics(c config.Config, runID string, verbose bool) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch c.Metrics.Backend {
	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}
		return func() {}, nil
	case "pushgateway":
		b, err = prompush.NewBackend(prompush.Config{
			GatewayURL: c.Metrics.PushgatewayURL,
			Job:        c.Job,
			Grouping:   map[string]string{"run_id": runID},
		})
	case "datadog":
		tags := append([]string{"job:" + c.Job, "run_id:" + runID}, c.Metrics.Tags...)
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       c.Metrics.DatadogAddr,
			Namespace:  c.Metrics.Namespace,
			GlobalTags: tags,
		})
	default:
		return nil, fmt.Errorf("%w: unknown metrics backend %q", config.ErrInvalid, c.Metrics.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	log.Printf("metrics: backend=%s job=%s run_id=%s", c.Metrics.Backend, c.Job, runID)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}, nil
}
