// =============================================================================
// ICD Codebook Mapper - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - codebook
//   - converter
//   - equivalence
//   - tablewriter
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// EDITION AND VARIANT
// =============================================================================

// Edition identifies the classification a codebook belongs to.
type Edition string

const (
	EditionICD9  Edition = "icd9"
	EditionICD10 Edition = "icd10"
)

// ParseEdition accepts "icd9"/"icd10" in any case.
func ParseEdition(s string) (Edition, error) {
	switch Edition(strings.ToLower(strings.TrimSpace(s))) {
	case EditionICD9:
		return EditionICD9, nil
	case EditionICD10:
		return EditionICD10, nil
	}
	return "", fmt.Errorf("unknown edition %q (expected icd9 or icd10)", s)
}

// Variant selects which codes survive normalization.
//
//	full: every code, with its decimal part
//	part: three-character category codes only
type Variant string

const (
	VariantFull Variant = "full"
	VariantPart Variant = "part"
)

// ParseVariant accepts "full"/"part" in any case.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantFull:
		return VariantFull, nil
	case VariantPart:
		return VariantPart, nil
	}
	return "", fmt.Errorf("unknown variant %q (expected full or part)", s)
}

// =============================================================================
// CODE RECORDS
// =============================================================================

// CodeRecord is one row of a parsed codebook table.
// Empty strings mean the value is absent.
type CodeRecord struct {
	Code           string
	Description    string
	Subcategory    string
	Category       string
	CommonCategory string
}

// CodeColumns is the column order used when a code table is written out.
var CodeColumns = []string{"code", "description", "subcategory", "category", "commoncat"}

// Row returns the record's values in CodeColumns order.
func (r CodeRecord) Row() []string {
	return []string{r.Code, r.Description, r.Subcategory, r.Category, r.CommonCategory}
}

// =============================================================================
// EQUIVALENCE RECORDS
// =============================================================================

// MatchStage records which resolver stage produced an equivalence.
// The string values are the ones written to the match_stage column.
type MatchStage string

const (
	StageManual                        MatchStage = "manual"
	StageSubcategoryFuzzy              MatchStage = "subcategory"
	StageDescriptionFuzzy              MatchStage = "description"
	StageSkippedSubcategoryDescription MatchStage = "skipped_subcategory"
	StageUnmatched                     MatchStage = "unmatched"
)

// AllStages lists the stages in resolver priority order, Unmatched last.
var AllStages = []MatchStage{
	StageSkippedSubcategoryDescription,
	StageManual,
	StageSubcategoryFuzzy,
	StageDescriptionFuzzy,
	StageUnmatched,
}

// EquivalenceRecord is an ICD-9 record annotated with its ICD-10 subcategory.
// Stage is StageUnmatched exactly when ICD10Subcategory is empty.
type EquivalenceRecord struct {
	CodeRecord

	// DescriptionClean is the normalized description used for fuzzy matching.
	DescriptionClean string

	ICD10Subcategory   string
	Stage              MatchStage
	MatchedDescription string
}

// EquivalenceColumns is the column order of the equivalence table.
var EquivalenceColumns = []string{
	"code", "description", "subcategory", "category", "commoncat",
	"description_clean", "icd10subcategory", "match_stage", "matched_description",
}

// Row returns the record's values in EquivalenceColumns order.
func (r EquivalenceRecord) Row() []string {
	return append(r.CodeRecord.Row(), r.DescriptionClean, r.ICD10Subcategory, string(r.Stage), r.MatchedDescription)
}

// Matched reports whether the record was linked to an ICD-10 subcategory.
func (r EquivalenceRecord) Matched() bool {
	return r.ICD10Subcategory != ""
}
