// Package config defines the run configuration of imdbnorm, loaded from a
// YAML file (configs/imdbnorm.yml by default) and overridden by IMDBNORM_*
// environment variables.
//
// Example (trimmed):
//
//	job: imdb
//	input_dir: /data/imdb
//	output_dir: /data/imdb/normalized
//	dataset_paths:
//	  film: title.basics.tsv
//	  person: name.basics.tsv
//	  principal: title.principals.tsv
//	  rating: title.ratings.tsv
//	film_filter: [movie, tvMovie]
//	storage: { kind: sqlite, dsn: file:imdb.db }
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"imdbnorm/internal/datasource/file"
	"imdbnorm/internal/schema"
)

// ErrInvalid is wrapped by every configuration error.
var ErrInvalid = errors.New("invalid config")

// DefaultPath is the config file used when none is given.
const DefaultPath = "configs/imdbnorm.yml"

// Config is the top-level object decoded from the YAML file.
type Config struct {
	// Job names the run in logs and metrics.
	Job string `yaml:"job"`

	InputDir     string       `yaml:"input_dir"`
	OutputDir    string       `yaml:"output_dir"`
	DatasetPaths DatasetPaths `yaml:"dataset_paths"`

	DatasetDelimiter string `yaml:"dataset_delimiter"`
	OutputDelimiter  string `yaml:"output_delimiter"`
	OutputExtension  string `yaml:"output_extension"`

	// FilmFilter is the title type allow-list. FilmFilterFile names a file
	// with one more type per line; both lists are merged.
	FilmFilter     []string `yaml:"film_filter"`
	FilmFilterFile string   `yaml:"film_filter_file"`

	// Parallelism is the splitter's chunk count and worker bound.
	Parallelism int `yaml:"parallelism"`

	ErrorLog      string `yaml:"error_log"`
	ErrorLogLimit int    `yaml:"error_log_limit"`

	Storage  Storage  `yaml:"storage"`
	Metrics  Metrics  `yaml:"metrics"`
	Progress Progress `yaml:"progress"`
}

// DatasetPaths holds the raw file of each source table, relative to InputDir
// unless absolute.
type DatasetPaths struct {
	Film      string `yaml:"film"`
	Person    string `yaml:"person"`
	Principal string `yaml:"principal"`
	Rating    string `yaml:"rating"`
}

// Get returns the configured path of a source table.
func (d DatasetPaths) Get(table string) string {
	switch table {
	case schema.Film:
		return d.Film
	case schema.Person:
		return d.Person
	case schema.Principal:
		return d.Principal
	case schema.Rating:
		return d.Rating
	}
	return ""
}

// Storage configures the downstream loader.
type Storage struct {
	Kind string `yaml:"kind"` // postgres, mssql, mysql, sqlite
	DSN  string `yaml:"dsn"`
	// Schema, when set, qualifies every table name ("imdb" -> imdb.film).
	Schema    string `yaml:"schema"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	Backend        string   `yaml:"backend"` // none, pushgateway, datadog
	PushgatewayURL string   `yaml:"pushgateway_url"`
	DatadogAddr    string   `yaml:"datadog_addr"`
	Namespace      string   `yaml:"namespace"`
	Tags           []string `yaml:"tags"`
}

// Progress controls progress reporting.
type Progress struct {
	// Interval is the minimum time between two progress lines.
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns c with every unset field filled in.
func (c Config) WithDefaults() Config {
	if c.Job == "" {
		c.Job = "imdbnorm"
	}
	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InputDir, "normalized")
	}
	if c.DatasetPaths.Film == "" {
		c.DatasetPaths.Film = "title.basics.tsv"
	}
	if c.DatasetPaths.Person == "" {
		c.DatasetPaths.Person = "name.basics.tsv"
	}
	if c.DatasetPaths.Principal == "" {
		c.DatasetPaths.Principal = "title.principals.tsv"
	}
	if c.DatasetPaths.Rating == "" {
		c.DatasetPaths.Rating = "title.ratings.tsv"
	}
	if c.DatasetDelimiter == "" {
		c.DatasetDelimiter = "\t"
	}
	if c.OutputDelimiter == "" {
		c.OutputDelimiter = c.DatasetDelimiter
	}
	if c.OutputExtension == "" {
		c.OutputExtension = "tsv"
	}
	c.OutputExtension = strings.TrimPrefix(c.OutputExtension, ".")
	if c.FilmFilter == nil && c.FilmFilterFile == "" {
		c.FilmFilter = []string{"movie"}
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	if c.ErrorLog == "" {
		c.ErrorLog = filepath.Join(c.OutputDir, "errors.json")
	}
	if c.Storage.Kind == "" {
		c.Storage.Kind = "sqlite"
	}
	if c.Storage.DSN == "" && c.Storage.Kind == "sqlite" {
		c.Storage.DSN = "file:" + filepath.Join(c.OutputDir, "imdb.db")
	}
	if c.Storage.BatchSize <= 0 {
		c.Storage.BatchSize = 5000
	}
	if c.Storage.Workers <= 0 {
		c.Storage.Workers = c.Parallelism
	}
	if c.Metrics.Backend == "" {
		c.Metrics.Backend = "none"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "imdbnorm"
	}
	if c.Progress.Interval <= 0 {
		c.Progress.Interval = 2 * time.Second
	}
	return c
}

// Load reads the YAML file at path, applies environment overrides and fills
// in defaults. Unknown keys are rejected. A missing file at DefaultPath is
// not an error: defaults plus environment are used.
func Load(path string) (Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := ApplyEnv(&c, os.Getenv); err != nil {
		return Config{}, err
	}
	return c.WithDefaults(), nil
}

// ApplyEnv overrides c with IMDBNORM_* variables read through getenv.
func ApplyEnv(c *Config, getenv func(string) string) error {
	if v := getenv("IMDBNORM_INPUT_DIR"); v != "" {
		c.InputDir = v
	}
	if v := getenv("IMDBNORM_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := getenv("IMDBNORM_STORAGE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"IMDBNORM_PARALLELISM", &c.Parallelism},
		{"IMDBNORM_BATCH_SIZE", &c.Storage.BatchSize},
	}
	for _, e := range ints {
		v := getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, e.key, v)
		}
		*e.dst = n
	}
	return nil
}

// InputPath returns the raw file of a source table.
func (c Config) InputPath(table string) string {
	p := c.DatasetPaths.Get(table)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.InputDir, p)
}

// FilmTypes returns the merged title type allow-list.
func (c Config) FilmTypes() ([]string, error) {
	types := append([]string(nil), c.FilmFilter...)
	if c.FilmFilterFile != "" {
		more, err := file.ReadList(c.FilmFilterFile)
		if err != nil {
			return nil, fmt.Errorf("film_filter_file: %w", err)
		}
		types = append(types, more...)
	}
	return types, nil
}
