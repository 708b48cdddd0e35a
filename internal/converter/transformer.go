// =============================================================================
// ICD Codebook Mapper - Record Transformation
// =============================================================================
//
// This module holds the record-level steps run between parsing and writing:
//
//   - Category join: attaches the common category from the categorisation
//     workbook to every record (left outer lookup on the lowercased category)
//   - Code dedupe: ICD-9 "part" tables keep the first record of each code
//
// Steps are plain functions over record slices and return new slices; the
// input is never modified.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/normalize"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/xlsxparser"
)

// ErrEmptyTaxonomy is returned when the categorisation table has no rows.
var ErrEmptyTaxonomy = errors.New("categorisation table is empty")

// =============================================================================
// CATEGORY JOIN
// =============================================================================

// JoinStats counts the outcome of a join.
type JoinStats struct {
	Matched   int
	Unmatched int

	// UnmatchedCategories lists the distinct categories with no taxonomy
	// row, in the order they first appear.
	UnmatchedCategories []string
}

// CategoryJoiner attaches common categories for one edition.
type CategoryJoiner struct {
	taxonomy *xlsxparser.Taxonomy
	edition  types.Edition
}

// NewCategoryJoiner creates a joiner over a loaded taxonomy.
//
// RETURNS:
//   - ErrEmptyTaxonomy when taxonomy is nil or has no rows
func NewCategoryJoiner(taxonomy *xlsxparser.Taxonomy, edition types.Edition) (*CategoryJoiner, error) {
	if taxonomy == nil || taxonomy.Len() == 0 {
		return nil, ErrEmptyTaxonomy
	}
	return &CategoryJoiner{taxonomy: taxonomy, edition: edition}, nil
}

// Join returns a copy of records with CommonCategory set from the taxonomy.
// Records without a taxonomy row get an empty CommonCategory. Order is
// preserved and joining an already joined set gives the same set.
func (j *CategoryJoiner) Join(records []types.CodeRecord) ([]types.CodeRecord, JoinStats) {
	var stats JoinStats
	seen := make(map[string]bool)

	out := make([]types.CodeRecord, len(records))
	for i, rec := range records {
		key := strings.ToLower(strings.TrimSpace(rec.Category))
		common, ok := j.taxonomy.Lookup(j.edition, key)
		if ok {
			stats.Matched++
		} else {
			stats.Unmatched++
			if !seen[key] {
				seen[key] = true
				stats.UnmatchedCategories = append(stats.UnmatchedCategories, key)
			}
		}
		rec.CommonCategory = common
		out[i] = rec
	}
	return out, stats
}

// =============================================================================
// DEDUPE
// =============================================================================

// DedupeFor applies the duplicate-code policy of a table kind. Only ICD-9
// "part" tables are deduplicated; other kinds are returned unchanged.
func DedupeFor(edition types.Edition, variant types.Variant, records []types.CodeRecord) ([]types.CodeRecord, int) {
	if edition != types.EditionICD9 || variant != types.VariantPart {
		return records, 0
	}
	return normalize.DedupeCodes(records)
}

func describeUnmatched(stats JoinStats) string {
	const max = 5
	cats := stats.UnmatchedCategories
	if len(cats) > max {
		return fmt.Sprintf("%q and %d more", cats[:max], len(cats)-max)
	}
	return fmt.Sprintf("%q", cats)
}
