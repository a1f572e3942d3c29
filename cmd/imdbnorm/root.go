package main

import (
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"imdbnorm/internal/config"
)

// app is the state shared by every subcommand, filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfgPath string
	verbose bool
	quiet   bool

	metricsBackend string
	pushgatewayURL string

	cfg   config.Config
	runID string
	flush func()

	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the imdbnorm command tree.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, flush: func() {}}

	rc := &cobra.Command{
		Use:   "imdbnorm",
		Short: "Normalize IMDb-style TSV dumps into relational tables.",
		Long: `imdbnorm turns the film, person, principal and rating dumps into
normalized entity tables plus derived join tables (genre, profession, job,
person_film), splits them into chunks for parallel loading and bulk-loads
them into postgres, mssql, mysql or sqlite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	pf := rc.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", config.DefaultPath, "YAML run configuration")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logs")
	pf.BoolVar(&a.quiet, "quiet", false, "suppress progress lines")
	pf.StringVar(&a.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (overrides metrics.backend)")
	pf.StringVar(&a.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides metrics.pushgateway_url)")

	rc.AddCommand(newParseCommand(a))
	rc.AddCommand(newSplitCommand(a))
	rc.AddCommand(newLoadCommand(a))
	rc.AddCommand(newValidateCommand(a))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setup loads the configuration, applies flag overrides and installs the
// metrics backend.
func (a *app) setup(cmd *cobra.Command) error {
	log.SetOutput(a.stderr)

	c, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.metricsBackend != "" {
		c.Metrics.Backend = a.metricsBackend
	}
	if a.pushgatewayURL != "" {
		c.Metrics.PushgatewayURL = a.pushgatewayURL
	}
	a.cfg = c
	a.runID = uuid.NewString()

	if cmd.Name() == "validate" {
		return nil
	}
	if err := config.Check(c); err != nil {
		printIssues(a.stderr, config.Validate(c))
		return err
	}
	flush, err := installMetrics(c, a.runID, a.verbose)
	if err != nil {
		return err
	}
	a.flush = flush
	return nil
}

// runE wraps a subcommand so the metrics backend is flushed whether the
// command succeeds or fails.
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.flush()
		return fn(cmd, args)
	}
}
