// =============================================================================
// ICD Codebook Mapper - Converter Module
// =============================================================================
//
// This module orchestrates the pipeline for a single codebook job, from the
// raw text codebook to a written table.
//
// CONVERSION PIPELINE:
//   1. Read the raw codebook lines
//   2. Read the ICD-10 reference subcategory list (ICD-10 jobs only)
//   3. Parse lines into code records
//   4. Join the common category from the categorisation workbook
//   5. Deduplicate codes (ICD-9 "part" tables only)
//   6. Validate the finished table
//   7. Write the table
//
// CONCURRENCY:
//   Each job runs in its own goroutine. A Converter shares nothing mutable
//   with other Converters; the taxonomy is read-only and the Sink is safe
//   for concurrent use.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"time"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/codebook"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/config"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/logging"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/textsource"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/validation"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/xlsxparser"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single codebook job.
type Result struct {
	// Name is the job name.
	Name string

	// InputFile is the raw codebook that was processed.
	InputFile string

	// Output is where the table was written. Empty on failure or dry run.
	Output string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Edition and Variant of the table.
	Edition types.Edition
	Variant types.Variant

	// Records is the finished table. The equivalence step reads it.
	Records []types.CodeRecord

	// Diagnostics are the advisory findings of the parse.
	Diagnostics []codebook.Diagnostic

	// Validation is the table check. Nil if processing stopped earlier.
	Validation *validation.ValidationResult

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	LinesRead         int
	CodeLines         int
	RecordsEmitted    int
	CodesDropped      int
	DuplicatesRemoved int

	// Uncategorised counts records whose category has no taxonomy row.
	Uncategorised int

	ValidationErrors   int
	ValidationWarnings int

	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options are the collaborators shared by all jobs of a run.
type Options struct {
	// Taxonomy is the loaded categorisation workbook. Nil skips the join.
	Taxonomy *xlsxparser.Taxonomy

	// Sink receives the finished table. Required unless DryRun is set.
	Sink Sink

	// Logger defaults to a no-op logger.
	Logger logging.Logger

	// DryRun runs every step except the write.
	DryRun bool
}

// Converter runs the pipeline for one codebook job.
type Converter struct {
	job    config.CodebookConfig
	opts   Options
	logger logging.Logger
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - job: the codebook job, already validated
//   - opts: the shared collaborators
func New(job config.CodebookConfig, opts Options) *Converter {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Converter{
		job:    job,
		opts:   opts,
		logger: logger.With("codebook", job.Name),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline. Failures are reported in the Result, never
// returned or panicked.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	edition, variant := c.job.EditionValue(), c.job.VariantValue()
	result := Result{
		Name:      c.job.Name,
		InputFile: c.job.Input,
		Edition:   edition,
		Variant:   variant,
	}
	finish := func() Result {
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}
	fail := func(err error) Result {
		result.Error = err
		c.logger.Error("codebook %s failed: %v", c.job.Name, err)
		return finish()
	}

	c.logger.Info("Processing %s %s codebook: %s", edition, variant, c.job.Input)

	// =========================================================================
	// STEP 1: READ CODEBOOK
	// =========================================================================

	lines, err := textsource.ReadLines(c.job.Input)
	if err != nil {
		return fail(fmt.Errorf("failed to read codebook: %w", err))
	}

	// =========================================================================
	// STEP 2: READ REFERENCE SUBCATEGORIES
	// =========================================================================
	// Only ICD-10 headers are validated against the reference list.

	var reference []string
	if edition == types.EditionICD10 {
		reference, err = textsource.ReadReferenceList(c.job.Subcategories)
		if err != nil {
			return fail(fmt.Errorf("failed to read subcategory list: %w", err))
		}
		c.logger.Debug("Loaded %d reference subcategories", len(reference))
	}

	// =========================================================================
	// STEP 3: PARSE
	// =========================================================================

	parser, err := codebook.NewParser(codebook.Options{
		Edition:   edition,
		Variant:   variant,
		Reference: reference,
		Logger:    c.logger,
	})
	if err != nil {
		return fail(err)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	parsed := parser.Parse(lines)
	result.Diagnostics = parsed.Diagnostics
	result.Stats.LinesRead = parsed.Stats.LinesRead
	result.Stats.CodeLines = parsed.Stats.CodeLines
	result.Stats.RecordsEmitted = parsed.Stats.RecordsEmitted
	result.Stats.CodesDropped = parsed.Stats.CodesDropped
	c.logger.Debug("Parsed %d records from %d lines (%d diagnostics)", len(parsed.Records), len(lines), len(parsed.Diagnostics))

	// =========================================================================
	// STEP 4: JOIN COMMON CATEGORIES
	// =========================================================================

	records := parsed.Records
	if c.opts.Taxonomy == nil {
		c.logger.Info("No categorisation table; common categories left empty")
	} else {
		joiner, err := NewCategoryJoiner(c.opts.Taxonomy, edition)
		if err != nil {
			return fail(fmt.Errorf("failed to join categories: %w", err))
		}
		var joinStats JoinStats
		records, joinStats = joiner.Join(records)
		result.Stats.Uncategorised = joinStats.Unmatched
		if joinStats.Unmatched > 0 {
			c.logger.Warn("%d records have no common category; categories %s", joinStats.Unmatched, describeUnmatched(joinStats))
		}
	}

	// =========================================================================
	// STEP 5: DEDUPLICATE
	// =========================================================================

	records, removed := DedupeFor(edition, variant, records)
	result.Stats.DuplicatesRemoved = removed
	if removed > 0 {
		c.logger.Debug("Removed %d duplicate codes", removed)
	}
	result.Records = records

	// =========================================================================
	// STEP 6: VALIDATE
	// =========================================================================
	// Findings are logged and counted; they do not stop the job.

	validationResult := validation.NewTableValidator(edition, variant).ValidateAll(records)
	result.Validation = validationResult
	result.Stats.ValidationErrors = validationResult.ErrorCount
	result.Stats.ValidationWarnings = validationResult.WarningCount
	for _, ve := range validationResult.Errors {
		if ve.Severity == validation.SeverityError {
			c.logger.Warn("Validation error: %s", ve.Error())
		} else {
			c.logger.Debug("Validation warning: %s", ve.Error())
		}
	}

	// =========================================================================
	// STEP 7: WRITE TABLE
	// =========================================================================

	if c.opts.DryRun {
		c.logger.Info("Dry run: %d records not written", len(records))
		result.Success = true
		return finish()
	}
	if c.opts.Sink == nil {
		return fail(fmt.Errorf("no output configured for %s", c.job.Name))
	}

	output, err := c.opts.Sink.WriteTable(ctx, tablewriter.CodeTable(c.job.Output, records))
	if err != nil {
		return fail(fmt.Errorf("failed to write output: %w", err))
	}

	result.Output = output
	result.Success = true
	c.logger.Info("Wrote %d records to: %s", len(records), output)

	return finish()
}
