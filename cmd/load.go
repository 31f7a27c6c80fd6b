package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/cellstat-cli/internal/loader"
	"github.com/spf13/cobra"
)

var (
	loadPopulations []string
	loadDelimiter   string
	loadForce       bool
)

var loadCmd = &cobra.Command{
	Use:   "load <table.csv> [db]",
	Short: "Create a store from a wide cell-count table",
	Long: `Load reads a CSV or TSV with one row per sample and one column per cell
population, and writes it into a new SQLite store as normalized samples and
cell_counts relations. Columns that are not sample metadata are treated as
populations unless --populations is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		dst := dbPath(args, 1)
		opt := loader.Options{Overwrite: loadForce, Populations: loadPopulations}
		if len(opt.Populations) == 0 {
			opt.Populations = settings().Populations
		}
		switch loadDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case ";":
			opt.Delimiter = ';'
		case "\t", "tab":
			opt.Delimiter = '\t'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", loadDelimiter)
		}

		res, err := loader.LoadFile(cmd.Context(), src, dst, opt)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Loaded %d samples (%d cell counts, %d populations) into %s\n",
			res.Samples, res.CellCounts, len(res.Populations), dst)
		fmt.Printf("  Populations: %s\n", strings.Join(res.Populations, ", "))
		fmt.Printf("  Run: %s\n", res.RunID)
		if res.Blank > 0 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %d blank count cell(s) were treated as unmeasured\n", res.Blank)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().StringSliceVar(&loadPopulations, "populations", nil, "comma-separated population columns (default: auto-detect)")
	loadCmd.Flags().StringVar(&loadDelimiter, "delimiter", "", "input delimiter: ',' | ';' | 'tab' (default: by extension)")
	loadCmd.Flags().BoolVarP(&loadForce, "force", "f", false, "replace an existing store")
}
