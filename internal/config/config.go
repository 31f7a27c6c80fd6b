package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/cellstat-cli/internal/analysis"
	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by the format setting.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Global configuration structure.
type Global struct {
	DBPath        string  `mapstructure:"db_path" yaml:"db_path"`
	Alpha         float64 `mapstructure:"alpha" yaml:"alpha"`
	PositiveLabel string  `mapstructure:"positive_label" yaml:"positive_label"`
	NegativeLabel string  `mapstructure:"negative_label" yaml:"negative_label"`
	// Cohort is the reference cohort for comparisons and baseline summaries.
	Cohort             cohort.Filter `mapstructure:"cohort" yaml:"cohort"`
	BaselinePopulation string        `mapstructure:"baseline_population" yaml:"baseline_population"`
	BaselineSubgroup   cohort.Filter `mapstructure:"baseline_subgroup" yaml:"baseline_subgroup"`
	// Populations restricts the loader to these columns; empty auto-detects.
	Populations []string `mapstructure:"populations" yaml:"populations,omitempty"`
	ReportHead  int      `mapstructure:"report_head" yaml:"report_head"`
	Format      string   `mapstructure:"format" yaml:"format"`
}

// DefaultCohort is melanoma PBMC samples treated with miraclib.
func DefaultCohort() cohort.Filter {
	return cohort.Filter{Condition: "melanoma", SampleType: "PBMC", Treatment: "miraclib"}
}

// Defaults returns the configuration used when no file or env overrides it.
func Defaults() *Global {
	return &Global{
		DBPath:             "immune_data.db",
		Alpha:              0.05,
		PositiveLabel:      "yes",
		NegativeLabel:      "no",
		Cohort:             DefaultCohort(),
		BaselinePopulation: analysis.DefaultBaselinePopulation,
		BaselineSubgroup:   analysis.DefaultSubgroup(),
		ReportHead:         5,
		Format:             FormatTable,
	}
}

// Dir returns ~/.cellstat.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".cellstat"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.cellstat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.cellstat/config.yaml) > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CELLSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("alpha", d.Alpha)
	v.SetDefault("positive_label", d.PositiveLabel)
	v.SetDefault("negative_label", d.NegativeLabel)
	v.SetDefault("baseline_population", d.BaselinePopulation)
	v.SetDefault("populations", []string{})
	v.SetDefault("report_head", d.ReportHead)
	v.SetDefault("format", d.Format)
	// filters get their defaults after Unmarshal so a configured cohort
	// replaces the default one rather than merging with it
	for _, f := range cohort.Fields {
		_ = v.BindEnv("cohort." + string(f))
		_ = v.BindEnv("baseline_subgroup." + string(f))
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Cohort.IsEmpty() {
		c.Cohort = d.Cohort
	}
	if c.BaselineSubgroup.IsEmpty() {
		c.BaselineSubgroup = d.BaselineSubgroup
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges.
func (c *Global) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %v", c.Alpha)
	}
	if c.ReportHead < 0 {
		return fmt.Errorf("report_head must be >= 0, got %d", c.ReportHead)
	}
	switch c.Format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("invalid format %q (use table, json or yaml)", c.Format)
	}
	if c.PositiveLabel == c.NegativeLabel {
		return fmt.Errorf("positive_label and negative_label must differ")
	}
	return nil
}
