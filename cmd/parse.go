// =============================================================================
// ICD Codebook Mapper - Parse Command
// =============================================================================
//
// This file defines the 'parse' command. It builds a single table from
// flags alone, without a configuration file.
//
// COMMAND USAGE:
//   icdmap parse --edition icd9 --variant part --input icd9.txt \
//       --categorisation categorisation.xlsx --output out/icd9_part.csv
//
//   icdmap parse --edition icd10 --input icd10.txt \
//       --subcategories subcategories.txt --output out/icd.db --table icd10_full
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/codebook"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/config"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/converter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/xlsxparser"
)

var parseFlags struct {
	edition        string
	variant        string
	input          string
	subcategories  string
	categorisation string
	sheet          string
	output         string
	table          string
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Build one codebook table from flags",
	Long: `The parse command reads one raw text codebook and writes one table. The
output format is taken from the --output extension (.csv, .xlsx, .db,
.sqlite, .xml).

Without --categorisation the commoncat column is left empty.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runParse(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	f := parseCmd.Flags()
	f.StringVar(&parseFlags.edition, "edition", "", "Codebook edition (icd9, icd10)")
	f.StringVar(&parseFlags.variant, "variant", "full", "Table variant (full, part)")
	f.StringVar(&parseFlags.input, "input", "", "Raw text codebook")
	f.StringVar(&parseFlags.subcategories, "subcategories", "", "ICD-10 reference subcategory list")
	f.StringVar(&parseFlags.categorisation, "categorisation", "", "Categorisation workbook (xlsx)")
	f.StringVar(&parseFlags.sheet, "sheet", "", "Categorisation sheet (default: first sheet)")
	f.StringVar(&parseFlags.output, "output", "", "Output file (.csv, .xlsx, .db, .xml)")
	f.StringVar(&parseFlags.table, "table", "", "Sheet or table name (default: <edition>_<variant>)")

	_ = parseCmd.MarkFlagRequired("edition")
	_ = parseCmd.MarkFlagRequired("input")
	_ = parseCmd.MarkFlagRequired("output")
}

func runParse(ctx context.Context, out io.Writer) error {
	flags := parseFlags

	edition, err := types.ParseEdition(flags.edition)
	if err != nil {
		return err
	}
	variant, err := types.ParseVariant(flags.variant)
	if err != nil {
		return err
	}
	if edition == types.EditionICD10 && flags.subcategories == "" {
		return fmt.Errorf("--subcategories is required for icd10")
	}

	table := strings.TrimSpace(flags.table)
	if table == "" {
		table = fmt.Sprintf("%s_%s", edition, variant)
	}
	job := config.CodebookConfig{
		Name:          table,
		Edition:       string(edition),
		Variant:       string(variant),
		Input:         flags.input,
		Subcategories: flags.subcategories,
		Output:        table,
	}

	var taxonomy *xlsxparser.Taxonomy
	if flags.categorisation != "" {
		if taxonomy, err = xlsxparser.ReadTaxonomy(flags.categorisation, flags.sheet); err != nil {
			return fmt.Errorf("failed to load categorisation: %w", err)
		}
	}

	format, err := tablewriter.FormatFromPath(flags.output)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(flags.output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	w, err := tablewriter.Open(format, flags.output)
	if err != nil {
		return err
	}

	result := converter.New(job, converter.Options{
		Taxonomy: taxonomy,
		Sink:     &converter.SharedSink{Writer: w, Path: flags.output},
		Logger:   logger,
	}).Run(ctx)

	if err := w.Close(); err != nil && result.Error == nil {
		return fmt.Errorf("failed to close %s: %w", flags.output, err)
	}
	if result.Error != nil {
		return result.Error
	}

	fmt.Fprintf(out, "✓ %s -> %s (%d records)\n", table, flags.output, len(result.Records))
	counts := codebook.CountByKind(result.Diagnostics)
	for _, kind := range codebook.DiagnosticKinds {
		if n := counts[kind]; n > 0 {
			fmt.Fprintf(out, "  %-30s %d\n", kind, n)
		}
	}
	return nil
}
