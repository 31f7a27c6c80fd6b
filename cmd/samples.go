package cmd

import (
	"github.com/KaramelBytes/cellstat-cli/internal/analysis"
	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/spf13/cobra"
)

var smpCohort cohortFlags

var samplesCmd = &cobra.Command{
	Use:   "samples [db]",
	Short: "Show samples with one column per population",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath(args, 0)
		co, err := smpCohort.resolve(cohort.Filter{})
		if err != nil {
			return err
		}
		var mx *analysis.Matrix
		err = withStore(cmd, path, func(db *store.DB) error {
			m, err := analysis.SampleMatrix(cmd.Context(), db, co)
			mx = m
			return err
		})
		if err != nil {
			return err
		}
		return emit(cmd, mx, mx.Markdown)
	},
}

func init() {
	rootCmd.AddCommand(samplesCmd)
	smpCohort.register(samplesCmd, "all samples")
}
