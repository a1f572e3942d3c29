package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imdbnorm/internal/pipeline"
)

func newParseCommand(a *app) *cobra.Command {
	var (
		resume  string
		noSplit bool
	)
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Normalize the raw dumps into entity and join tables.",
		Long: `parse reads the film, person, principal and rating dumps in that order,
writes one normalized table per source plus the derived genre, profession,
job and person_film tables, then splits every table into chunks.

--resume starts at a later source and rebuilds the film and person indexes
from the output of an earlier run.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			opts, err := pipeline.FromConfig(a.cfg)
			if err != nil {
				return err
			}
			opts.RunID = a.runID
			opts.Resume = resume
			opts.NoSplit = noSplit
			opts.Verbose = a.verbose
			if a.quiet {
				opts.Progress = pipeline.NopSink{}
			}

			r := pipeline.New(opts)
			sum, err := r.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("parse failed in stage %s: %w", r.Stage(), err)
			}
			for _, t := range sum.Tables {
				fmt.Fprintf(a.stdout, "%s\tread=%d accepted=%d dropped=%d malformed=%d\n",
					t.Table, t.Read, t.Accepted, t.Dropped, t.Malformed)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&resume, "resume", "", "resume at a source table: "+strings.Join(pipeline.ResumePoints(), ", "))
	cmd.Flags().BoolVar(&noSplit, "no-split", false, "skip the split stage")
	return cmd
}
