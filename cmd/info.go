package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/spf13/cobra"
)

type storeInfo struct {
	Path  string            `json:"path"`
	Stats store.Stats       `json:"stats"`
	Runs  []store.IngestRun `json:"ingest_runs"`
}

func (i storeInfo) markdown() string {
	var b strings.Builder
	b.WriteString("[STORE]\n")
	b.WriteString(fmt.Sprintf("Path: %s\n", i.Path))
	b.WriteString(fmt.Sprintf("Samples: %d\n", i.Stats.Samples))
	b.WriteString(fmt.Sprintf("Cell counts: %d\n", i.Stats.CellCounts))
	b.WriteString(fmt.Sprintf("Populations: %d\n", i.Stats.Populations))
	if len(i.Runs) > 0 {
		b.WriteString("\n[INGEST RUNS]\n")
		for _, r := range i.Runs {
			b.WriteString(fmt.Sprintf("- %s %s from %s: %d samples, %d cell counts (%s)\n",
				r.LoadedAt, r.ID, r.Source, r.Samples, r.CellCounts, r.Populations))
		}
	}
	return b.String()
}

var infoCmd = &cobra.Command{
	Use:   "info [db]",
	Short: "Show store contents and load history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info := storeInfo{Path: dbPath(args, 0)}
		err := withStore(cmd, info.Path, func(db *store.DB) error {
			st, err := db.Stats(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := db.IngestRuns(cmd.Context())
			if err != nil {
				return err
			}
			info.Stats, info.Runs = st, runs
			return nil
		})
		if err != nil {
			return err
		}
		return emit(cmd, info, info.markdown)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
