// =============================================================================
// ICD Codebook Mapper - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command of the mapper.
// It runs every configured codebook job and then the equivalence step.
//
// COMMAND USAGE:
//   icdmap process [flags]
//
// FLAGS:
//   --dry-run           : Run every step but write no tables or logs
//   --codebook NAME     : Only run the named job(s); repeatable
//   --skip-equivalence  : Do not run the equivalence step
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Load the categorisation workbook
//   3. Open the output (one file per table, or one SQLite database)
//   4. Run the codebook jobs concurrently (max_concurrency at a time)
//   5. Resolve ICD-9 -> ICD-10 equivalences
//   6. Write the validation, diagnostics and summary logs
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/config"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/converter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/validation"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/xlsxparser"
	"github.com/ginjaninja78/icd-codebook-mapper/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun          bool
	onlyCodebooks   []string
	skipEquivalence bool
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Build every configured codebook table and the equivalence table",
	Long: `The process command runs every codebook job listed in the configuration,
joins common categories from the categorisation workbook, writes the tables,
and then links the ICD-9 table to ICD-10 subcategories.

Jobs run concurrently. A failing job does not stop the others; it is reported
in the summary and makes the command exit non-zero.

Every line the parser could not place is listed in a diagnostics log in the
output directory, next to a processing summary.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run every step but write no tables or logs")
	processCmd.Flags().StringSliceVar(&onlyCodebooks, "codebook", nil, "Only run the named codebook job (repeatable)")
	processCmd.Flags().BoolVar(&skipEquivalence, "skip-equivalence", false, "Do not run the equivalence step")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context, out io.Writer) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Fprintln(out, "=== ICD Codebook Mapper ===")

	mainConfig, err := loadConfig()
	if err != nil {
		return err
	}

	jobs, err := selectJobs(mainConfig.Codebooks, onlyCodebooks)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No codebooks configured.")
		return nil
	}

	files := utils.NewFileManager(mainConfig.OutputDir)
	log := logger.With("run", files.RunID)
	log.Info("Loaded configuration from %s (%d codebook jobs)", cfgFile, len(jobs))

	// =========================================================================
	// STEP 2: LOAD CATEGORISATION WORKBOOK
	// =========================================================================

	taxonomy, err := xlsxparser.ReadTaxonomy(mainConfig.CategorisationFile, mainConfig.CategorisationSheet)
	if err != nil {
		return fmt.Errorf("failed to load categorisation: %w", err)
	}
	if taxonomy.Len() == 0 {
		return fmt.Errorf("%s: %w", mainConfig.CategorisationFile, converter.ErrEmptyTaxonomy)
	}
	log.Info("Loaded %d categorisation rows", taxonomy.Len())

	// =========================================================================
	// STEP 3: OPEN OUTPUT
	// =========================================================================

	var sink converter.Sink
	if !dryRun {
		var closeSink func() error
		sink, closeSink, err = openSink(mainConfig, files)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeSink(); err != nil {
				log.Error("failed to close output: %v", err)
			}
		}()
	}

	// =========================================================================
	// STEP 4: RUN CODEBOOK JOBS CONCURRENTLY
	// =========================================================================
	// One goroutine per job; the semaphore caps how many run at once.

	fmt.Fprintf(out, "Processing %d codebook(s)...\n", len(jobs))

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(jobs))
	sem := make(chan struct{}, mainConfig.MaxConcurrency)

	opts := converter.Options{Taxonomy: taxonomy, Sink: sink, Logger: log, DryRun: dryRun}
	for _, job := range jobs {
		wg.Add(1)
		go func(job config.CodebookConfig) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results <- converter.New(job, opts).Run(ctx)
		}(job)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := utils.ProcessingSummary{
		RunID:          files.RunID,
		StartTime:      startTime,
		TotalCodebooks: len(jobs),
	}
	byName := make(map[string]converter.Result, len(jobs))
	var diagnostics []utils.DiagnosticEntry

	for result := range results {
		byName[result.Name] = result
		if result.Success {
			fmt.Fprintf(out, "  ✓ %s -> %s (%d records)\n", result.Name, displayOutput(result.Output), len(result.Records))
		} else {
			fmt.Fprintf(out, "  ✗ %s: %v\n", result.Name, result.Error)
		}
	}

	// Report in configuration order, not completion order.
	for _, job := range jobs {
		result := byName[job.Name]
		if result.Success {
			summary.Successful++
			summary.TotalRecords += len(result.Records)
			summary.ValidationErrors += result.Stats.ValidationErrors
			summary.ProcessedCodebooks = append(summary.ProcessedCodebooks, utils.ProcessedCodebookInfo{
				Name:        result.Name,
				InputFile:   result.InputFile,
				Output:      displayOutput(result.Output),
				Records:     len(result.Records),
				Diagnostics: len(result.Diagnostics),
				ProcessTime: result.Stats.ProcessingTime,
			})
		} else {
			summary.Failed++
			summary.FailedCodebooks = append(summary.FailedCodebooks, utils.FailedCodebookInfo{
				Name:         result.Name,
				InputFile:    result.InputFile,
				ErrorMessage: fmt.Sprint(result.Error),
			})
		}
		for _, d := range result.Diagnostics {
			diagnostics = append(diagnostics, utils.DiagnosticEntry{
				Codebook: result.Name,
				Kind:     string(d.Kind),
				Line:     d.Line,
				Text:     d.Text,
				Detail:   d.Detail,
			})
		}
	}
	summary.TotalDiagnostics = len(diagnostics)

	// =========================================================================
	// STEP 5: EQUIVALENCE
	// =========================================================================

	var equivalenceErr error
	if eq := mainConfig.Equivalence; eq.Enabled && !skipEquivalence {
		icd9, ok9 := byName[eq.ICD9Codebook]
		icd10, ok10 := byName[eq.ICD10Codebook]
		switch {
		case !ok9 || !ok10:
			fmt.Fprintln(out, "Equivalence skipped: its codebooks were not selected.")
		case !icd9.Success || !icd10.Success:
			equivalenceErr = fmt.Errorf("equivalence skipped: codebook %s or %s failed", eq.ICD9Codebook, eq.ICD10Codebook)
			fmt.Fprintln(out, equivalenceErr)
		default:
			records, eqSummary, err := resolveEquivalence(ctx, log, icd9.Records, icd10.Records, eq.RulesFile, mainConfig.Workers)
			if err != nil {
				return err
			}
			printEquivalenceSummary(out, eqSummary)

			info := &utils.EquivalenceInfo{
				Output:    eq.Output,
				Total:     eqSummary.Total,
				Matched:   eqSummary.Matched,
				Unmatched: eqSummary.Unmatched,
				ByStage:   stageCounts(eqSummary),
			}
			if !dryRun {
				location, err := sink.WriteTable(ctx, tablewriter.EquivalenceTable(eq.Output, records))
				if err != nil {
					return fmt.Errorf("failed to write equivalence table: %w", err)
				}
				info.Output = displayOutput(location)
				fmt.Fprintf(out, "  ✓ equivalence -> %s\n", info.Output)
			}
			summary.Equivalence = info
		}
	}

	// =========================================================================
	// STEP 6: LOGS AND SUMMARY
	// =========================================================================

	summary.EndTime = time.Now()

	printDiagnosticCounts(out, diagnostics)

	if !dryRun {
		for _, job := range jobs {
			result := byName[job.Name]
			if result.Validation == nil || len(result.Validation.Errors) == 0 {
				continue
			}
			path := filepath.Join(mainConfig.OutputDir, fmt.Sprintf("validation_%s.txt", job.Name))
			if err := validation.WriteErrorLog(result.Validation.Errors, path); err != nil {
				log.Error("%v", err)
			} else {
				fmt.Fprintf(out, "Validation findings for %s written to %s\n", job.Name, path)
			}
		}

		if path, err := utils.WriteDiagnosticsLog(diagnostics, mainConfig.OutputDir, files.RunID); err != nil {
			log.Error("%v", err)
		} else if path != "" {
			fmt.Fprintf(out, "Diagnostics written to %s\n", path)
		}
		if path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir); err != nil {
			log.Error("%v", err)
		} else {
			fmt.Fprintf(out, "Summary written to %s\n", path)
		}
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total codebooks: %d\n", summary.TotalCodebooks)
	fmt.Fprintf(out, "Successful:      %d\n", summary.Successful)
	fmt.Fprintf(out, "Errors:          %d\n", summary.Failed)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime).Round(time.Millisecond))

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d codebooks failed", summary.Failed, summary.TotalCodebooks)
	}
	return equivalenceErr
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// selectJobs filters the configured jobs by name. An empty filter keeps all.
func selectJobs(all []config.CodebookConfig, names []string) ([]config.CodebookConfig, error) {
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var jobs []config.CodebookConfig
	for _, job := range all {
		if want[job.Name] {
			jobs = append(jobs, job)
			delete(want, job.Name)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown codebook(s): %v", missing)
	}
	return jobs, nil
}

// openSink opens the configured output. The returned func closes it.
func openSink(cfg *config.MainConfig, files *utils.FileManager) (converter.Sink, func() error, error) {
	format := cfg.Format()

	extra := []string{}
	if format == tablewriter.FormatSQLite {
		extra = append(extra, filepath.Dir(cfg.SQLitePath))
	}
	if err := files.EnsureDirectories(extra...); err != nil {
		return nil, nil, err
	}

	if format != tablewriter.FormatSQLite {
		sink := &converter.FileSink{Files: files, Format: format, NameFormat: cfg.OutputNameFormat}
		return sink, func() error { return nil }, nil
	}

	db, err := tablewriter.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return &converter.SharedSink{Writer: db, Path: cfg.SQLitePath}, db.Close, nil
}

func displayOutput(output string) string {
	if output == "" {
		return "(dry run)"
	}
	return output
}

func printDiagnosticCounts(out io.Writer, diagnostics []utils.DiagnosticEntry) {
	if len(diagnostics) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, d := range diagnostics {
		counts[d.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	fmt.Fprintln(out, "\nDiagnostics:")
	for _, k := range kinds {
		fmt.Fprintf(out, "  %-30s %d\n", k, counts[k])
	}
}
