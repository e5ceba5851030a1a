package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/capview/internal/core"
	"github.com/JonMunkholm/capview/internal/manifest"
	"github.com/JonMunkholm/capview/internal/render"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Resolve the pipeline document and print it without fetching",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := manifest.New()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		conf, err := resolver.Resolve(cfg.Pipeline.ConfigPath)
		if err != nil {
			fmt.Fprintln(out, render.FormatFailure(core.MapError(err)))
			return errConfig{err}
		}

		fmt.Fprintf(out, "document: %s\n", conf.Source)
		fmt.Fprintf(out, "server:   %s://%s:%d (user %s)\n", conf.Protocol, conf.Server, conf.Port, conf.Username)

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ENTRY\tKIND\tTITLE\tREMOTE\tLOCAL")
		for _, e := range conf.Datasets {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Index, e.Kind, e.Title, e.RemotePath, e.LocalPath)
		}
		return tw.Flush()
	},
}
