package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ottcivic/liveability-cli/internal/snapshot"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect scoring run history",
	Long:  "Commands for listing past builds and viewing their ranked scores.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scoring runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, snapshot.RunFilter{
			Status: snapshot.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tCITY\tNEIGHBOURHOODS\tSTARTED\tDURATION")
		for _, r := range runs {
			duration := "-"
			if r.FinishedAt != nil {
				duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.Status, r.City, r.Neighbourhoods,
				r.StartedAt.Format(time.RFC3339), duration)
		}
		return w.Flush()
	},
}

// -- runs show --

var runsShowJSON bool

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the ranked scores of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		scores, err := st.GetScores(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		if len(scores) == 0 {
			return eris.Errorf("no scores recorded for run %s", args[0])
		}

		if runsShowJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(scores)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tNEIGHBOURHOOD\tOVERALL")
		for _, s := range scores {
			overall := "-"
			if s.Overall != nil {
				overall = fmt.Sprintf("%.2f", *s.Overall)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.Rank, s.Name, overall)
		}
		return w.Flush()
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list")
	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false, "emit full score records as JSON")
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
