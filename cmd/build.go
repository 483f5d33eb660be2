package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ottcivic/liveability-cli/internal/pipeline"
	"github.com/ottcivic/liveability-cli/internal/snapshot"
)

var (
	buildOutput  string
	buildNoStore bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run a full scoring build",
	Long:  "Loads boundaries and datasets, assigns features to neighbourhoods, aggregates metrics, scores, and writes the ranked JSON document.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if buildOutput != "" {
			cfg.Data.Output = buildOutput
		}

		var st snapshot.Store
		if !buildNoStore {
			var err error
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		res, err := pipeline.New(cfg, st).Run(ctx)
		if err != nil {
			return err
		}

		printBuildSummary(res)
		return nil
	},
}

func printBuildSummary(res *pipeline.Result) {
	fmt.Printf("Build complete in %s: %d neighbourhoods (%d zones resolved, %d missing)\n",
		res.Duration.Round(1e7), res.Resolve.Neighbourhoods,
		res.Resolve.ZonesResolved, res.Resolve.ZonesMissing)
	if res.RunID != "" {
		fmt.Printf("Run: %s\n", res.RunID)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tNEIGHBOURHOOD\tOVERALL")
	for _, p := range res.Document.Neighbourhoods {
		overall := "-"
		if p.Scores.Overall != nil {
			overall = fmt.Sprintf("%.2f", *p.Scores.Overall)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", p.Rank, p.Name, overall)
	}
	_ = w.Flush()
}

// initStore opens the configured snapshot store and runs migrations.
func initStore(ctx context.Context) (snapshot.Store, error) {
	st, err := snapshot.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("store ready", zap.String("driver", cfg.Store.Driver))
	return st, nil
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output path for the ranked JSON document")
	buildCmd.Flags().BoolVar(&buildNoStore, "no-store", false, "skip recording the run in the snapshot store")
	rootCmd.AddCommand(buildCmd)
}
