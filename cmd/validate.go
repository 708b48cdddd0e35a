// =============================================================================
// ICD Codebook Mapper - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It checks the configuration and
// every input it names without parsing codebooks or writing anything.
//
// COMMAND USAGE:
//   icdmap validate [--config config.yaml]
//
// CHECKS:
//   - config.yaml loads and passes validation
//   - every codebook input and subcategory list exists
//   - the categorisation workbook has at least one row
//   - the equivalence rules file, if set, parses
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/converter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/equivalence"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/xlsxparser"
	"github.com/ginjaninja78/icd-codebook-mapper/pkg/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and its input files",
	Long: `The validate command loads the configuration and checks that every file it
refers to can be read. Nothing is parsed or written. All problems are
reported together.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(out io.Writer) error {
	mainConfig, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ configuration %s\n", cfgFile)

	var problems []error
	check := func(label string, err error) {
		if err != nil {
			problems = append(problems, err)
			fmt.Fprintf(out, "✗ %s: %v\n", label, err)
			return
		}
		fmt.Fprintf(out, "✓ %s\n", label)
	}

	for _, job := range mainConfig.Codebooks {
		check(job.Name+" input", utils.CheckInputFile(job.Input))
		if job.EditionValue() == types.EditionICD10 {
			check(job.Name+" subcategories", utils.CheckInputFile(job.Subcategories))
		}
	}

	if mainConfig.CategorisationFile != "" {
		taxonomy, err := xlsxparser.ReadTaxonomy(mainConfig.CategorisationFile, mainConfig.CategorisationSheet)
		if err == nil && taxonomy.Len() == 0 {
			err = converter.ErrEmptyTaxonomy
		}
		label := "categorisation " + mainConfig.CategorisationFile
		if err == nil {
			label = fmt.Sprintf("%s (%d rows)", label, taxonomy.Len())
		}
		check(label, err)
	}

	if eq := mainConfig.Equivalence; eq.Enabled {
		rules, err := equivalence.LoadRules(eq.RulesFile)
		label := "equivalence rules"
		if err == nil {
			label = fmt.Sprintf("%s (%d skipped subcategories, %d manual links)", label, rules.SkipCount(), rules.ManualCount())
		}
		check(label, err)
	}

	if !utils.FileExists(mainConfig.OutputDir) {
		fmt.Fprintf(out, "  output directory %s will be created\n", mainConfig.OutputDir)
	}

	if len(problems) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(problems...))
	}
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}
