package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/cellstat-cli/internal/analysis"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	cmpPopulation string
	cmpAlpha      float64
	cmpCohort     cohortFlags
)

var compareCmd = &cobra.Command{
	Use:   "compare [db]",
	Short: "Compare responders and non-responders with Welch's t-test",
	Long: `Compare partitions the cohort by response label and tests, per population,
whether the mean relative frequency differs between responders and
non-responders. Groups with fewer than 2 samples are reported as
insufficient_data; a population absent from the cohort as no_data.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		path := dbPath(args, 0)
		co, err := cmpCohort.resolve(c.Cohort)
		if err != nil {
			return err
		}
		alpha := c.Alpha
		if cmd.Flags().Changed("alpha") {
			alpha = cmpAlpha
		}
		if alpha <= 0 || alpha >= 1 {
			return fmt.Errorf("invalid --alpha %v: must be in (0, 1)", alpha)
		}
		opt := analysis.CompareOptions{
			Cohort:     co,
			Population: cmpPopulation,
			Alpha:      alpha,
			Positive:   c.PositiveLabel,
			Negative:   c.NegativeLabel,
		}

		var res []analysis.Comparison
		err = withStore(cmd, path, func(db *store.DB) error {
			r, err := analysis.CompareResponders(cmd.Context(), db, opt)
			res = r
			return err
		})
		if err != nil {
			return err
		}
		for _, r := range res {
			if r.Outcome == analysis.OutcomeNoData {
				fmt.Fprintf(os.Stderr, "⚠ Warning: population %q does not occur in cohort %s\n", r.Population, co.String())
			}
		}
		return emit(cmd, res, func() string { return analysis.ComparisonsMarkdown(res, alpha) })
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVar(&cmpPopulation, "population", "", "compare only this population (default: all)")
	compareCmd.Flags().Float64Var(&cmpAlpha, "alpha", 0.05, "significance threshold (default from config)")
	cmpCohort.register(compareCmd, "the configured cohort")
}
