package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	cfgpkg "github.com/KaramelBytes/cellstat-cli/internal/config"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/KaramelBytes/cellstat-cli/internal/utils"
	"github.com/spf13/cobra"
)

// cohortFlags are the --filter / --no-cohort pair shared by analysis commands.
type cohortFlags struct {
	filters  []string
	noCohort bool
}

func (f *cohortFlags) register(cmd *cobra.Command, defaultHelp string) {
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "cohort filter key=value (repeatable; replaces "+defaultHelp+")")
	cmd.Flags().BoolVar(&f.noCohort, "no-cohort", false, "analyze all samples")
}

// resolve returns the cohort selected by flags, or def when none was given.
func (f *cohortFlags) resolve(def cohort.Filter) (cohort.Filter, error) {
	if f.noCohort && len(f.filters) > 0 {
		return cohort.Filter{}, fmt.Errorf("--filter and --no-cohort are mutually exclusive")
	}
	if f.noCohort {
		return cohort.Filter{}, nil
	}
	if len(f.filters) > 0 {
		return cohort.Parse(f.filters)
	}
	return def, nil
}

// dbPath returns args[i] when present, else the configured store path.
func dbPath(args []string, i int) string {
	if len(args) > i && strings.TrimSpace(args[i]) != "" {
		return args[i]
	}
	return settings().DBPath
}

func withStore(cmd *cobra.Command, path string, fn func(*store.DB) error) error {
	return store.With(cmd.Context(), path, fn)
}

func outputFormat() (string, error) {
	f := settings().Format
	if flagFormat != "" {
		f = strings.ToLower(flagFormat)
	}
	switch f {
	case cfgpkg.FormatTable, cfgpkg.FormatJSON, cfgpkg.FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported --format: %s (use table, json or yaml)", f)
}

// emit renders v in the selected format and writes it to --output or stdout.
// table is only called for the table format.
func emit(cmd *cobra.Command, v any, table func() string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	var b []byte
	switch format {
	case cfgpkg.FormatJSON:
		b, err = utils.PrettyJSON(v)
		b = append(b, '\n')
	case cfgpkg.FormatYAML:
		b, err = utils.PrettyYAML(v)
	default:
		b = []byte(table())
	}
	if err != nil {
		return err
	}
	if flagOutput != "" {
		if err := utils.SafeWriteFile(flagOutput, b); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("✓ Wrote %s output to %s\n", format, flagOutput)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}
