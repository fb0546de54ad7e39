package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NSF-Swift/satellite-overhead/internal/tle"
)

func newTLECmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tle",
		Short: "Manage cached element sets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "fetch",
			Short: "Download element sets into the cache",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, n, err := fetchElements(cmd.Context(), a.cfg, a.logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %d element sets to %s\n", n, path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List cached element files, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				files, err := tle.NewCache(a.cfg.Catalog.CacheDir, a.cfg.Catalog.MaxFiles).Files()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "FETCHED\tAGE\tPATH")
				for _, f := range files {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", f.FetchedAt.UTC().Format(time.RFC3339),
						time.Since(f.FetchedAt).Round(time.Minute), f.Path)
				}
				return tw.Flush()
			},
		},
	)
	return cmd
}
