package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/cellstat-cli/internal/analysis"
	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	freqSamples     []string
	freqPopulations []string
	freqHead        int
	freqCohort      cohortFlags
)

var frequenciesCmd = &cobra.Command{
	Use:     "frequencies [db]",
	Aliases: []string{"freq"},
	Short:   "Relative frequency of each population in each sample",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath(args, 0)
		co, err := freqCohort.resolve(cohort.Filter{})
		if err != nil {
			return err
		}
		if freqHead < 0 {
			return fmt.Errorf("invalid --head %d", freqHead)
		}
		opt := analysis.FrequencyOptions{Cohort: co, Samples: freqSamples, Populations: freqPopulations}

		var tbl *analysis.FrequencyTable
		err = withStore(cmd, path, func(db *store.DB) error {
			t, err := analysis.RelativeFrequencies(cmd.Context(), db, opt)
			tbl = t
			return err
		})
		if err != nil {
			return err
		}
		if len(tbl.Undefined) > 0 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %d sample(s) have a total count of 0 and were skipped\n", len(tbl.Undefined))
		}
		return emit(cmd, tbl, func() string { return analysis.FrequenciesMarkdown(tbl, freqHead) })
	},
}

func init() {
	rootCmd.AddCommand(frequenciesCmd)
	frequenciesCmd.Flags().StringArrayVar(&freqSamples, "sample", nil, "only show this sample (repeatable)")
	frequenciesCmd.Flags().StringArrayVar(&freqPopulations, "population", nil, "only show this population (repeatable)")
	frequenciesCmd.Flags().IntVar(&freqHead, "head", 0, "rows to show in table output (0 = all)")
	freqCohort.register(frequenciesCmd, "all samples")
}
