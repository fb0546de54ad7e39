package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NSF-Swift/satellite-overhead/internal/report"
	"github.com/NSF-Swift/satellite-overhead/internal/store"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved runs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if a.cfg.Storage.Path == "" {
				a.logger.Warn("storage.path is empty; runs are only kept in memory")
			}
			return nil
		},
	}

	var (
		limit   int
		asJSON  bool
		showFmt string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := store.Open(a.cfg.Storage.Path, 0, a.logger)
			if err != nil {
				return err
			}
			defer runs.Close()

			summaries, err := runs.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tFACILITY\tBEGIN\tEND\tMAIN BEAM\tHORIZON\tFAILURES")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n", s.ID,
					s.CreatedAt.UTC().Format(time.RFC3339), s.Facility,
					s.Begin.UTC().Format(time.RFC3339), s.End.UTC().Format(time.RFC3339),
					s.MainBeamWindows, s.HorizonWindows, s.Failures)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	list.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print the report of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := store.Open(a.cfg.Storage.Path, 0, a.logger)
			if err != nil {
				return err
			}
			defer runs.Close()

			rec, err := runs.Get(args[0])
			if err != nil {
				return err
			}
			if showFmt == "json" {
				return report.WriteJSON(cmd.OutOrStdout(), report.New(rec))
			}
			return report.WriteText(cmd.OutOrStdout(), report.New(rec))
		},
	}
	show.Flags().StringVarP(&showFmt, "format", "f", "text", "Output format: text or json")

	cmd.AddCommand(list, show)
	return cmd
}
