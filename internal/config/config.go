// =============================================================================
// ICD Codebook Mapper - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the run configuration.
//
// CONFIGURATION FILE (config.yaml):
//   - Global settings: output directory and format, logging, concurrency
//   - Codebook jobs: one entry per table to build (edition + variant + input)
//   - Equivalence: which ICD-9 and ICD-10 jobs feed the resolver
//
// Command-line flags and ICDMAP_* environment variables are layered on top
// of the file by the cmd package.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where tables and run logs are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// OutputFormat selects the table writer: "csv", "xlsx", "sqlite" or "xml".
	// Default: "csv"
	OutputFormat string `yaml:"output_format"`

	// SQLitePath is the database file used when OutputFormat is "sqlite".
	// All tables of a run go into this one database.
	// Default: "<output_dir>/icd.db"
	SQLitePath string `yaml:"sqlite_path"`

	// OutputNameFormat defines the file name of csv and xlsx tables.
	// Placeholders:
	//   {name}      - The codebook's output name
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - A random UUID
	//
	// CUSTOMIZATION: Add {timestamp} or {uuid} to keep tables from earlier runs.
	// Default: "{name}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of codebook jobs run at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// Workers is the number of goroutines used by the equivalence resolver.
	// Default: 4
	Workers int `yaml:"workers"`

	// =========================================================================
	// INPUTS
	// =========================================================================

	// CategorisationFile is the xlsx workbook mapping ICD-9 and ICD-10
	// categories to a common category (columns icd9cat, icd10cat, commoncat).
	CategorisationFile string `yaml:"categorisation_file"`

	// CategorisationSheet is the sheet to read. Empty means the first sheet.
	CategorisationSheet string `yaml:"categorisation_sheet"`

	// Codebooks lists the tables to build.
	Codebooks []CodebookConfig `yaml:"codebooks"`

	// Equivalence configures the ICD-9 -> ICD-10 resolver.
	Equivalence EquivalenceConfig `yaml:"equivalence"`
}

// =============================================================================
// CODEBOOK JOB STRUCTURE
// =============================================================================

// CodebookConfig describes one table to build from one raw text codebook.
type CodebookConfig struct {
	// Name identifies the job in logs, summaries and the equivalence section.
	Name string `yaml:"name"`

	// Edition is "icd9" or "icd10".
	Edition string `yaml:"edition"`

	// Variant is "full" or "part".
	// Default: "full"
	Variant string `yaml:"variant"`

	// Input is the raw text codebook.
	Input string `yaml:"input"`

	// Subcategories is the ICD-10 reference subcategory list, one per line.
	// Required for ICD-10 jobs, ignored for ICD-9.
	Subcategories string `yaml:"subcategories"`

	// Output is the table name. Default: the job name.
	Output string `yaml:"output"`
}

// EditionValue returns the parsed edition. Only valid after validation.
func (c CodebookConfig) EditionValue() types.Edition {
	e, _ := types.ParseEdition(c.Edition)
	return e
}

// VariantValue returns the parsed variant. Only valid after validation.
func (c CodebookConfig) VariantValue() types.Variant {
	v, _ := types.ParseVariant(c.Variant)
	return v
}

// =============================================================================
// EQUIVALENCE STRUCTURE
// =============================================================================

// EquivalenceConfig selects the jobs whose records feed the resolver.
type EquivalenceConfig struct {
	// Enabled turns the equivalence step on.
	Enabled bool `yaml:"enabled"`

	// ICD9Codebook and ICD10Codebook are job names from Codebooks.
	ICD9Codebook  string `yaml:"icd9_codebook"`
	ICD10Codebook string `yaml:"icd10_codebook"`

	// Output is the table name of the equivalence table.
	// Default: "icd9_icd10_equivalence"
	Output string `yaml:"output"`

	// RulesFile replaces the built-in skip-list and manual lexicon.
	// Empty means the built-in rules.
	RulesFile string `yaml:"rules_file"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct, with defaults applied.
//   - An error if the file cannot be read, parsed or fails validation.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := ParseMainConfig(data)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// ParseMainConfig parses, defaults and validates configuration YAML.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for any unset configuration options.
func ApplyDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = string(tablewriter.FormatCSV)
	}
	config.OutputFormat = strings.ToLower(config.OutputFormat)
	if config.SQLitePath == "" {
		config.SQLitePath = filepath.Join(config.OutputDir, "icd.db")
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{name}"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.Workers == 0 {
		config.Workers = 4
	}

	for i := range config.Codebooks {
		cb := &config.Codebooks[i]
		cb.Edition = strings.ToLower(strings.TrimSpace(cb.Edition))
		cb.Variant = strings.ToLower(strings.TrimSpace(cb.Variant))
		if cb.Variant == "" {
			cb.Variant = string(types.VariantFull)
		}
		if cb.Output == "" {
			cb.Output = cb.Name
		}
	}

	if config.Equivalence.Output == "" {
		config.Equivalence.Output = "icd9_icd10_equivalence"
	}
}

// Validate checks field values and cross references. It does not touch the
// filesystem; input existence is checked by the validate command.
func Validate(config *MainConfig) error {
	var errs []error

	if _, err := tablewriter.ParseFormat(config.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	if config.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency))
	}
	if config.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", config.Workers))
	}
	if len(config.Codebooks) > 0 && config.CategorisationFile == "" {
		errs = append(errs, errors.New("categorisation_file is required"))
	}

	names := make(map[string]bool, len(config.Codebooks))
	outputs := make(map[string]string, len(config.Codebooks))
	for i, cb := range config.Codebooks {
		label := fmt.Sprintf("codebooks[%d]", i)
		if cb.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", label))
		} else {
			label = fmt.Sprintf("codebook %s", cb.Name)
			if names[cb.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate name", label))
			}
			names[cb.Name] = true
		}

		edition, err := types.ParseEdition(cb.Edition)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
		if _, err := types.ParseVariant(cb.Variant); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
		if cb.Input == "" {
			errs = append(errs, fmt.Errorf("%s: input is required", label))
		}
		if edition == types.EditionICD10 && cb.Subcategories == "" {
			errs = append(errs, fmt.Errorf("%s: subcategories is required for icd10", label))
		}
		if other, dup := outputs[cb.Output]; dup {
			errs = append(errs, fmt.Errorf("%s: output %q already used by %s", label, cb.Output, other))
		}
		outputs[cb.Output] = cb.Name
	}

	if eq := config.Equivalence; eq.Enabled {
		errs = append(errs, validateEquivalenceSource(config, "icd9_codebook", eq.ICD9Codebook, types.EditionICD9)...)
		errs = append(errs, validateEquivalenceSource(config, "icd10_codebook", eq.ICD10Codebook, types.EditionICD10)...)
	}

	return errors.Join(errs...)
}

func validateEquivalenceSource(config *MainConfig, field, name string, want types.Edition) []error {
	if name == "" {
		return []error{fmt.Errorf("equivalence: %s is required", field)}
	}
	cb, ok := config.Codebook(name)
	if !ok {
		return []error{fmt.Errorf("equivalence: %s %q is not a configured codebook", field, name)}
	}
	if cb.Edition != string(want) {
		return []error{fmt.Errorf("equivalence: %s %q is %s, want %s", field, name, cb.Edition, want)}
	}
	return nil
}

// Codebook returns the job with the given name.
func (c *MainConfig) Codebook(name string) (CodebookConfig, bool) {
	for _, cb := range c.Codebooks {
		if cb.Name == name {
			return cb, true
		}
	}
	return CodebookConfig{}, false
}

// Format returns the parsed output format. Only valid after validation.
func (c *MainConfig) Format() tablewriter.Format {
	f, _ := tablewriter.ParseFormat(c.OutputFormat)
	return f
}
