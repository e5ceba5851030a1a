package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/capview/internal/render"
)

var (
	runSort    int
	runDesc    bool
	runJSON    bool
	runSummary bool
)

// errConfig makes the process exit non-zero after a configuration error.
// Per-entry failures are reported in the output and do not change the
// exit status.
type errConfig struct{ err error }

func (e errConfig) Error() string { return e.err.Error() }

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and print the reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var opts []render.Option
		if runSort >= 0 {
			opts = append(opts, render.WithSort(runSort, runDesc))
		}
		if runJSON {
			opts = append(opts, render.WithJSON())
		}
		out := cmd.OutOrStdout()
		sink := render.NewTerminal(out, opts...)

		pipeline, _, cleanup, err := buildPipeline(ctx, sink)
		if err != nil {
			return err
		}
		defer cleanup()

		report := pipeline.Run(ctx, cfg.Pipeline.ConfigPath)
		if runSummary || report.Fatal() {
			if err := render.Summary(cmd.ErrOrStderr(), report); err != nil {
				return err
			}
		}
		if report.Fatal() {
			return errConfig{report.ConfigErr}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runSort, "sort", -1, "sort every view by this 0-based column")
	runCmd.Flags().BoolVar(&runDesc, "desc", false, "sort descending")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print one JSON document per view")
	runCmd.Flags().BoolVar(&runSummary, "summary", false, "print a per-entry summary to stderr")
}
