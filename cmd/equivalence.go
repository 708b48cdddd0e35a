// =============================================================================
// ICD Codebook Mapper - Equivalence Command
// =============================================================================
//
// This file defines the 'equivalence' command. It links the rows of an
// existing ICD-9 table to ICD-10 subcategories without reparsing the
// codebooks. Tables can be read from csv, xlsx or SQLite.
//
// COMMAND USAGE:
//   icdmap equivalence --icd9 out/icd9_full.csv --icd10 out/icd10_full.csv \
//       --output out/equivalence.csv
//
//   icdmap equivalence --icd9 out/icd.db --icd9-table icd9_full \
//       --icd10 out/icd.db --icd10-table icd10_full --output out/icd.db
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

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/csvparser"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/equivalence"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/logging"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/xlsxparser"
	"github.com/ginjaninja78/icd-codebook-mapper/pkg/utils"
)

var equivalenceFlags struct {
	icd9, icd9Table   string
	icd10, icd10Table string
	output            string
	outputTable       string
	rules             string
}

var equivalenceCmd = &cobra.Command{
	Use:   "equivalence",
	Short: "Link an ICD-9 table to ICD-10 subcategories",
	Long: `The equivalence command reads an ICD-9 and an ICD-10 code table written by
'process' or 'parse' and writes one row per ICD-9 code with the ICD-10
subcategory it was linked to and the stage that linked it.

The table format is taken from the file extension (.csv, .xlsx, .db,
.sqlite). For xlsx the --*-table flag names the sheet; for SQLite it names
the table and is required.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runEquivalence(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(equivalenceCmd)

	f := equivalenceCmd.Flags()
	f.StringVar(&equivalenceFlags.icd9, "icd9", "", "ICD-9 code table")
	f.StringVar(&equivalenceFlags.icd9Table, "icd9-table", "", "Sheet or table name inside --icd9")
	f.StringVar(&equivalenceFlags.icd10, "icd10", "", "ICD-10 code table")
	f.StringVar(&equivalenceFlags.icd10Table, "icd10-table", "", "Sheet or table name inside --icd10")
	f.StringVar(&equivalenceFlags.output, "output", "", "Output file (.csv, .xlsx, .db, .xml)")
	f.StringVar(&equivalenceFlags.outputTable, "output-table", "icd9_icd10_equivalence", "Sheet or table name of the output")
	f.StringVar(&equivalenceFlags.rules, "rules", "", "YAML file replacing the built-in skip-list and manual lexicon")

	_ = equivalenceCmd.MarkFlagRequired("icd9")
	_ = equivalenceCmd.MarkFlagRequired("icd10")
	_ = equivalenceCmd.MarkFlagRequired("output")
}

func runEquivalence(ctx context.Context, out io.Writer) error {
	flags := equivalenceFlags

	icd9, err := readCodeTable(ctx, flags.icd9, flags.icd9Table)
	if err != nil {
		return err
	}
	icd10, err := readCodeTable(ctx, flags.icd10, flags.icd10Table)
	if err != nil {
		return err
	}
	logger.Info("Loaded %d ICD-9 and %d ICD-10 records", len(icd9), len(icd10))

	records, summary, err := resolveEquivalence(ctx, logger, icd9, icd10, flags.rules, workerCount(4))
	if err != nil {
		return err
	}
	printEquivalenceSummary(out, summary)

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
	if err := w.Write(ctx, tablewriter.EquivalenceTable(flags.outputTable, records)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write equivalence table: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Equivalence written to %s\n", flags.output)
	return nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// resolveEquivalence loads the rules and resolves every ICD-9 record,
// drawing a progress bar on stderr.
func resolveEquivalence(ctx context.Context, log logging.Logger, icd9, icd10 []types.CodeRecord, rulesPath string, workers int) ([]types.EquivalenceRecord, equivalence.Summary, error) {
	rules, err := equivalence.LoadRules(rulesPath)
	if err != nil {
		return nil, equivalence.Summary{}, err
	}
	log.Debug("Equivalence rules: %d skipped subcategories, %d manual links", rules.SkipCount(), rules.ManualCount())

	bar := progressbar.NewOptions(len(icd9),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Resolving equivalences..."),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	resolver, err := equivalence.NewResolver(icd10, equivalence.Options{
		Rules:    rules,
		Workers:  workers,
		Logger:   log,
		Progress: func() { _ = bar.Add(1) },
	})
	if err != nil {
		return nil, equivalence.Summary{}, err
	}
	index := resolver.Index()
	log.Debug("Indexed %d ICD-10 subcategories and %d descriptions", len(index.Subcategories), len(index.Descriptions))

	records, summary, err := resolver.ResolveAll(ctx, icd9)
	if err != nil {
		_ = bar.Exit()
		return nil, equivalence.Summary{}, fmt.Errorf("failed to resolve equivalences: %w", err)
	}
	_ = bar.Finish()
	return records, summary, nil
}

func printEquivalenceSummary(out io.Writer, summary equivalence.Summary) {
	fmt.Fprintln(out, "\nEquivalence:")
	fmt.Fprintf(out, "  Total codes:  %d\n", summary.Total)
	fmt.Fprintf(out, "  Matched:      %d\n", summary.Matched)
	fmt.Fprintf(out, "  Not matched:  %d\n", summary.Unmatched)
	for _, stage := range types.AllStages {
		if n := summary.ByStage[stage]; n > 0 {
			fmt.Fprintf(out, "    %-20s %d\n", stage, n)
		}
	}
}

func stageCounts(summary equivalence.Summary) map[string]int {
	counts := make(map[string]int, len(summary.ByStage))
	for stage, n := range summary.ByStage {
		counts[string(stage)] = n
	}
	return counts
}

// readCodeTable reads a code table, choosing the reader by extension.
// table names the sheet (xlsx) or table (SQLite).
func readCodeTable(ctx context.Context, path, table string) ([]types.CodeRecord, error) {
	if err := utils.CheckInputFile(path); err != nil {
		return nil, err
	}
	format, err := tablewriter.FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case tablewriter.FormatCSV:
		return csvparser.ReadCodeTable(path, ",")
	case tablewriter.FormatXLSX:
		return xlsxparser.ReadCodeTable(path, table)
	case tablewriter.FormatSQLite:
		db, err := tablewriter.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		if strings.TrimSpace(table) == "" {
			tables, err := db.Tables(ctx)
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%s: a table name is required for SQLite input (tables: %s)", path, strings.Join(tables, ", "))
		}
		return db.ReadCodeTable(ctx, table)
	default:
		return nil, fmt.Errorf("%s: %s tables cannot be read back", path, format)
	}
}
