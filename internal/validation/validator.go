// =============================================================================
// ICD Codebook Mapper - Table Validation
// =============================================================================
//
// This module checks a finished code table before it is written out:
//   - every record has a code
//   - "part" tables only contain codes of the expected shape
//   - codes are unique where the table requires it
//   - records under a subcategory also carry a category
//
// ERROR HANDLING:
//   - Errors are collected, not thrown immediately
//   - Each error names the row, the field and the offending value
//   - Warnings are reported but do not fail the table
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the column that failed validation.
	Field string

	// Value is the value that failed validation.
	Value string

	// Rule is the rule that was violated.
	Rule string

	// Message is a human-readable message.
	Message string

	// RowNumber is the 1-based position of the record in the table.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Row %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validating one table.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// RecordsValidated is the number of records checked.
	RecordsValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

var (
	icd10PartCode = regexp.MustCompile(`^[a-z]\d[a-z0-9]$`)
	icd9PartCode  = regexp.MustCompile(`^[0-9a-z]{3}$`)
)

// TableValidator checks the records of one edition and variant.
type TableValidator struct {
	edition types.Edition
	variant types.Variant
}

// NewTableValidator creates a validator for the given table kind.
func NewTableValidator(edition types.Edition, variant types.Variant) *TableValidator {
	return &TableValidator{edition: edition, variant: variant}
}

// ValidateAll validates every record and returns a detailed result.
//
// PARAMETERS:
//   - records: the table in output order
//
// RETURNS:
//   - a ValidationResult; IsValid is false when any error was found
func (v *TableValidator) ValidateAll(records []types.CodeRecord) *ValidationResult {
	result := &ValidationResult{
		IsValid:          true,
		Errors:           make([]*ValidationError, 0),
		RecordsValidated: len(records),
	}

	add := func(e *ValidationError) {
		result.Errors = append(result.Errors, e)
		if e.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
		} else {
			result.WarningCount++
		}
	}

	seen := make(map[string]int, len(records))
	for i, rec := range records {
		row := i + 1
		for _, e := range v.ValidateRecord(rec, row) {
			add(e)
		}

		if first, dup := seen[rec.Code]; dup && rec.Code != "" {
			severity := SeverityWarning
			if v.edition == types.EditionICD9 && v.variant == types.VariantPart {
				severity = SeverityError
			}
			add(&ValidationError{
				Severity:  severity,
				Field:     "code",
				Value:     rec.Code,
				Rule:      "unique",
				Message:   fmt.Sprintf("duplicate of row %d", first),
				RowNumber: row,
			})
			continue
		}
		seen[rec.Code] = row
	}

	return result
}

// ValidateRecord checks a single record.
func (v *TableValidator) ValidateRecord(rec types.CodeRecord, row int) []*ValidationError {
	var errs []*ValidationError

	if rec.Code == "" {
		return append(errs, &ValidationError{
			Severity:  SeverityError,
			Field:     "code",
			Rule:      "required",
			Message:   "code is empty",
			RowNumber: row,
		})
	}

	if rec.Code != strings.ToLower(rec.Code) {
		errs = append(errs, &ValidationError{
			Severity:  SeverityError,
			Field:     "code",
			Value:     rec.Code,
			Rule:      "lowercase",
			Message:   "code is not lowercased",
			RowNumber: row,
		})
	}

	if v.variant == types.VariantPart {
		shape := icd9PartCode
		if v.edition == types.EditionICD10 {
			shape = icd10PartCode
		}
		if !shape.MatchString(rec.Code) {
			errs = append(errs, &ValidationError{
				Severity:  SeverityError,
				Field:     "code",
				Value:     rec.Code,
				Rule:      "shape",
				Message:   fmt.Sprintf("code does not match %s", shape.String()),
				RowNumber: row,
			})
		}
	}

	if rec.Subcategory != "" && rec.Category == "" {
		errs = append(errs, &ValidationError{
			Severity:  SeverityWarning,
			Field:     "category",
			Value:     rec.Subcategory,
			Rule:      "hierarchy",
			Message:   "record has a subcategory but no category",
			RowNumber: row,
		})
	}

	return errs
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to filePath with a timestamped
// header.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation report generated %s\n\n", time.Now().Format(time.RFC3339)))
	builder.WriteString(FormatErrors(errors))

	if err := os.WriteFile(filePath, []byte(builder.String()), 0644); err != nil {
		return fmt.Errorf("failed to write validation log: %w", err)
	}
	return nil
}
