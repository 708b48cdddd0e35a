// =============================================================================
// ICD Codebook Mapper - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (icdmap)
//   ├── processCmd     (icdmap process)
//   ├── parseCmd       (icdmap parse)
//   ├── equivalenceCmd (icdmap equivalence)
//   ├── validateCmd    (icdmap validate)
//   └── versionCmd     (icdmap version)
//
// CONFIGURATION:
//   config.yaml is loaded by the config package. Viper layers the global
//   flags and ICDMAP_* environment variables on top of it:
//
//   --log-level   ICDMAP_LOG_LEVEL   log_level
//   --log-format  ICDMAP_LOG_FORMAT  log_format
//   --workers     ICDMAP_WORKERS     workers
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/config"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// logger is set up by initConfig before any command runs.
var logger logging.Logger = logging.NewNop()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "icdmap",
	Short: "ICD Codebook Mapper - Build ICD-9/ICD-10 lookup tables and equivalences",
	Long: `ICD Codebook Mapper converts the flat text ICD-9 and ICD-10 codebooks into
normalized lookup tables and links every ICD-9 code to an ICD-10 subcategory.

Key Features:
  - Full and three-character ("part") tables for both editions
  - Common categories joined from a categorisation workbook
  - ICD-9 -> ICD-10 equivalence through a manual lexicon and fuzzy matching
  - CSV, XLSX or SQLite output
  - Diagnostics report for every line the parser could not place

Example Usage:
  icdmap process                      # Build every configured table
  icdmap process --config ./my.yaml   # Use a custom configuration file
  icdmap validate                     # Check configuration and inputs only`,

	SilenceUsage:      true,
	PersistentPreRunE: initConfig,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command with ctx. It is called by main.main().
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "Path to the main configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console, json)")
	rootCmd.PersistentFlags().Int("workers", 0, "Equivalence resolver goroutines")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
}

// initConfig wires environment variables and sets up a first logger from
// flags and environment alone. Commands that load config.yaml call
// setupLogging again once the file values are known.
func initConfig(_ *cobra.Command, _ []string) error {
	viper.SetEnvPrefix("ICDMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	return setupLogging(viper.GetString("log_level"), viper.GetString("log_format"))
}

// setupLogging replaces the package logger. Empty values fall back to
// info and console.
func setupLogging(level, format string) error {
	if verbose {
		level = "debug"
	}
	if level == "" {
		level = "info"
	}
	if format == "" {
		format = "console"
	}

	l, err := logging.New(logging.Config{Level: level, Format: format})
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger = l
	return nil
}

// loadConfig loads config.yaml, applies flag and environment overrides,
// re-validates and switches the logger to the final settings.
func loadConfig() (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("log_format"); v != "" {
		cfg.LogFormat = v
	}
	if v := viper.GetInt("workers"); v != 0 {
		cfg.Workers = v
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := setupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

// workerCount returns the --workers / ICDMAP_WORKERS value, or def.
func workerCount(def int) int {
	if v := viper.GetInt("workers"); v > 0 {
		return v
	}
	return def
}
