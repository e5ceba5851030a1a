package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/capview/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs (requires DATABASE_URL)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Database.Enabled() {
			return errors.New("run history is not enabled; set DATABASE_URL")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		store, err := history.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		runs, err := store.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tRESULT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), summarize(r))
		}
		return tw.Flush()
	},
}

// summarize describes a run's outcome in one short phrase.
func summarize(r history.Run) string {
	if r.ConfigCode != "" {
		return "config " + r.ConfigCode
	}
	ok := 0
	var codes []string
	for _, e := range r.Entries {
		if e.State == "rendered" {
			ok++
		} else if e.ErrorCode != "" {
			codes = append(codes, fmt.Sprintf("%d:%s", e.Index, e.ErrorCode))
		}
	}
	s := fmt.Sprintf("%d/%d rendered", ok, len(r.Entries))
	for _, c := range codes {
		s += " " + c
	}
	return s
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON")
}
