package cmd

import (
	"github.com/KaramelBytes/cellstat-cli/internal/analysis"
	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	basePopulation string
	baseSubgroup   []string
	baseCohort     cohortFlags
)

var baselineCmd = &cobra.Command{
	Use:   "baseline [db]",
	Short: "Summarize baseline (time 0) samples of the cohort",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		path := dbPath(args, 0)
		co, err := baseCohort.resolve(c.Cohort)
		if err != nil {
			return err
		}
		opt := analysis.BaselineOptions{
			Cohort:     co,
			Population: c.BaselinePopulation,
			Subgroup:   c.BaselineSubgroup,
		}
		if basePopulation != "" {
			opt.Population = basePopulation
		}
		if len(baseSubgroup) > 0 {
			sub, err := cohort.Parse(baseSubgroup)
			if err != nil {
				return err
			}
			opt.Subgroup = sub
		}

		var sum *analysis.BaselineSummary
		err = withStore(cmd, path, func(db *store.DB) error {
			s, err := analysis.Baseline(cmd.Context(), db, opt)
			sum = s
			return err
		})
		if err != nil {
			return err
		}
		return emit(cmd, sum, sum.Markdown)
	},
}

func init() {
	rootCmd.AddCommand(baselineCmd)
	baselineCmd.Flags().StringVar(&basePopulation, "population", "", "population to average over the subgroup (default from config)")
	baselineCmd.Flags().StringArrayVar(&baseSubgroup, "subgroup", nil, "subgroup filter key=value (repeatable; default from config)")
	baseCohort.register(baselineCmd, "the configured cohort")
}
