package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "storage.kind", "dataset_paths.film").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static checks over c (after defaults). It does not touch
// the filesystem or the database; it returns every finding so a CLI can show
// them all at once.
func Validate(c Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		add(SeverityError, "output_dir", "output_dir must not be empty")
	}

	for _, p := range []struct{ path, val string }{
		{"dataset_paths.film", c.DatasetPaths.Film},
		{"dataset_paths.person", c.DatasetPaths.Person},
		{"dataset_paths.principal", c.DatasetPaths.Principal},
		{"dataset_paths.rating", c.DatasetPaths.Rating},
	} {
		if strings.TrimSpace(p.val) == "" {
			add(SeverityError, p.path, "dataset path must not be empty")
		}
	}

	for _, d := range []struct{ path, val string }{
		{"dataset_delimiter", c.DatasetDelimiter},
		{"output_delimiter", c.OutputDelimiter},
	} {
		switch {
		case d.val == "":
			add(SeverityError, d.path, "delimiter must not be empty")
		case strings.ContainsAny(d.val, "\r\n"):
			add(SeverityError, d.path, "delimiter must not contain line breaks")
		case utf8.RuneCountInString(d.val) > 1:
			add(SeverityWarning, d.path, "multi-character delimiter %q", d.val)
		}
	}
	if c.OutputDelimiter == "," {
		add(SeverityWarning, "output_delimiter", "comma delimiter replaces commas inside titles and names with spaces")
	}
	if strings.ContainsAny(c.OutputExtension, `/\`) {
		add(SeverityError, "output_extension", "extension must not contain path separators")
	}

	if len(c.FilmFilter) == 0 && c.FilmFilterFile == "" {
		add(SeverityWarning, "film_filter", "empty film_filter accepts every title type")
	}
	for i, t := range c.FilmFilter {
		if strings.TrimSpace(t) == "" {
			add(SeverityError, fmt.Sprintf("film_filter[%d]", i), "title type must not be empty")
		}
	}

	if c.Parallelism < 1 {
		add(SeverityError, "parallelism", "parallelism must be at least 1")
	}
	if c.ErrorLogLimit < 0 {
		add(SeverityError, "error_log_limit", "error_log_limit must not be negative")
	}

	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.dsn",
			Message:  "storage.dsn is empty; the load command will fail",
		})
	}
	if s.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.batch_size",
			Message:  fmt.Sprintf("batch_size=%d must be positive", s.BatchSize),
		})
	}
	if s.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.workers",
			Message:  "workers must not be negative",
		})
	}
	if s.Kind == "sqlite" && s.Workers > 1 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.workers",
			Message:  "sqlite allows a single writer; workers is forced to 1",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "none", "":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
	case "datadog":
		if m.DatadogAddr == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is empty; the client default (DD_AGENT_HOST or 127.0.0.1:8125) is used",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none, pushgateway or datadog)", m.Backend),
		})
	}
	for i, tag := range m.Tags {
		if !strings.Contains(tag, ":") {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("metrics.tags[%d]", i),
				Message:  fmt.Sprintf("tag %q is not key:value", tag),
			})
		}
	}
	return issues
}

// Check returns an error wrapping ErrInvalid and every error-severity issue,
// or nil when the config can be run.
func Check(c Config) error {
	var errs []error
	for _, iss := range Validate(c) {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
