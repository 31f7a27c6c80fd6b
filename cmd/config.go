package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	cfgpkg "github.com/KaramelBytes/cellstat-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set cellstat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "db_path: %s\n", c.DBPath)
		fmt.Fprintf(out, "alpha: %g\n", c.Alpha)
		fmt.Fprintf(out, "positive_label: %s\n", c.PositiveLabel)
		fmt.Fprintf(out, "negative_label: %s\n", c.NegativeLabel)
		fmt.Fprintf(out, "cohort: %s\n", c.Cohort.String())
		fmt.Fprintf(out, "baseline_population: %s\n", c.BaselinePopulation)
		fmt.Fprintf(out, "baseline_subgroup: %s\n", c.BaselineSubgroup.String())
		if len(c.Populations) > 0 {
			fmt.Fprintf(out, "populations: %s\n", strings.Join(c.Populations, ","))
		} else {
			fmt.Fprintln(out, "populations: (auto-detect)")
		}
		fmt.Fprintf(out, "report_head: %d\n", c.ReportHead)
		fmt.Fprintf(out, "format: %s\n", c.Format)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk. Filters (cohort, baseline_subgroup)
take comma-separated key=value pairs, e.g.
  cellstat config set cohort condition=melanoma,sample_type=PBMC`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "db_path":
			cfg.DBPath = val
		case "alpha":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for alpha: %w", err)
			}
			cfg.Alpha = f
		case "positive_label":
			cfg.PositiveLabel = val
		case "negative_label":
			cfg.NegativeLabel = val
		case "cohort":
			f, err := parseFilterList(val)
			if err != nil {
				return err
			}
			cfg.Cohort = f
		case "baseline_population":
			cfg.BaselinePopulation = val
		case "baseline_subgroup":
			f, err := parseFilterList(val)
			if err != nil {
				return err
			}
			cfg.BaselineSubgroup = f
		case "populations":
			cfg.Populations = nil
			for _, p := range strings.Split(val, ",") {
				if p = strings.TrimSpace(p); p != "" {
					cfg.Populations = append(cfg.Populations, p)
				}
			}
		case "report_head":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for report_head: %w", err)
			}
			cfg.ReportHead = i
		case "format":
			cfg.Format = strings.ToLower(val)
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func parseFilterList(val string) (cohort.Filter, error) {
	var parts []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return cohort.Filter{}, fmt.Errorf("empty filter: expected key=value[,key=value...]")
	}
	return cohort.Parse(parts)
}
