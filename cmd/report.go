package cmd

import (
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/cellstat-cli/internal/analysis"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	repHead   int
	repAlpha  float64
	repCohort cohortFlags
)

var reportCmd = &cobra.Command{
	Use:   "report [db]",
	Short: "Print relative frequencies, responder comparison and baseline summary",
	Long: `Report runs the three analyses against a store. Relative frequencies cover
every sample; the responder comparison and baseline summary use the
configured cohort unless --filter or --no-cohort is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		path := dbPath(args, 0)
		co, err := repCohort.resolve(c.Cohort)
		if err != nil {
			return err
		}
		head := c.ReportHead
		if cmd.Flags().Changed("head") {
			head = repHead
		}
		alpha := c.Alpha
		if cmd.Flags().Changed("alpha") {
			alpha = repAlpha
		}
		if alpha <= 0 || alpha >= 1 {
			return fmt.Errorf("invalid --alpha %v: must be in (0, 1)", alpha)
		}
		opt := analysis.ReportOptions{
			Head: head,
			Compare: analysis.CompareOptions{
				Cohort:   co,
				Alpha:    alpha,
				Positive: c.PositiveLabel,
				Negative: c.NegativeLabel,
			},
			Baseline: analysis.BaselineOptions{
				Cohort:     co,
				Population: c.BaselinePopulation,
				Subgroup:   c.BaselineSubgroup,
			},
		}
		slog.Debug("running report", "store", path, "cohort", co.String(), "head", head)

		var rep *analysis.Report
		err = withStore(cmd, path, func(db *store.DB) error {
			r, err := analysis.Run(cmd.Context(), db, opt)
			if err != nil {
				return err
			}
			rep = r
			return nil
		})
		if err != nil {
			return err
		}
		rep.Store = path
		return emit(cmd, rep, rep.Markdown)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntVar(&repHead, "head", 5, "relative frequency rows to show (0 = all; default from config)")
	reportCmd.Flags().Float64Var(&repAlpha, "alpha", 0.05, "significance threshold (default from config)")
	repCohort.register(reportCmd, "the configured cohort")
}
