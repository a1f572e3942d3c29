package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imdbnorm/internal/metrics"
	"imdbnorm/internal/output"
	"imdbnorm/internal/schema"
	"imdbnorm/internal/split"
)

func newSplitCommand(a *app) *cobra.Command {
	var parallelism int
	cmd := &cobra.Command{
		Use:   "split [table...]",
		Short: "Split normalized tables into chunks for parallel loading.",
		Long: `split chunks the unsplit output file of every named table (all tables
when none are named) into parallelism files under <output_dir>/<table>/ and
writes a manifest with line counts and checksums. Tables that are already
split are skipped.`,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			tables := args
			if len(tables) == 0 {
				tables = schema.TableNames()
			}
			for _, t := range tables {
				if _, ok := schema.Lookup(t); !ok {
					return fmt.Errorf("unknown table %q", t)
				}
			}
			c := a.cfg
			if parallelism <= 0 {
				parallelism = c.Parallelism
			}
			s := &split.Splitter{
				Layout:      output.Layout{Dir: c.OutputDir, Ext: c.OutputExtension, Delim: c.OutputDelimiter},
				Parallelism: parallelism,
				Verbose:     a.verbose,
			}
			results, err := s.Split(cmd.Context(), tables)
			for _, r := range results {
				switch {
				case r.Err != nil:
					fmt.Fprintf(a.stdout, "%s\tfailed\n", r.Table)
				case r.Skipped:
					fmt.Fprintf(a.stdout, "%s\tskipped\n", r.Table)
				default:
					metrics.RecordChunks(c.Job, r.Table, r.Chunks)
					fmt.Fprintf(a.stdout, "%s\tlines=%d chunks=%d\n", r.Table, r.Lines, r.Chunks)
				}
			}
			return err
		}),
	}
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "chunks per table (default: parallelism from the config)")
	return cmd
}
