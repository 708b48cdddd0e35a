package equivalence

import (
	"errors"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/normalize"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// ErrNoReferenceRecords is returned when the resolver is built without any
// ICD-10 records.
var ErrNoReferenceRecords = errors.New("no icd10 records to match against")

// Index is the read-only view of the ICD-10 table used by the matching
// stages. It is built once and shared by all workers.
type Index struct {
	// Subcategories holds the distinct non-empty subcategories in the order
	// they first appear.
	Subcategories []string

	// Descriptions holds the distinct non-empty cleaned descriptions in the
	// order they first appear.
	Descriptions []string

	commonBySubcategory map[string]map[string]struct{}
	byDescription       map[string]types.CodeRecord
}

// NewIndex indexes the ICD-10 records.
func NewIndex(records []types.CodeRecord) (*Index, error) {
	if len(records) == 0 {
		return nil, ErrNoReferenceRecords
	}

	idx := &Index{
		commonBySubcategory: make(map[string]map[string]struct{}),
		byDescription:       make(map[string]types.CodeRecord),
	}

	for _, rec := range records {
		if sub := rec.Subcategory; sub != "" {
			commons, seen := idx.commonBySubcategory[sub]
			if !seen {
				commons = make(map[string]struct{})
				idx.commonBySubcategory[sub] = commons
				idx.Subcategories = append(idx.Subcategories, sub)
			}
			if rec.CommonCategory != "" {
				commons[rec.CommonCategory] = struct{}{}
			}
		}

		if clean := normalize.CleanDescription(rec.Description); clean != "" {
			if _, seen := idx.byDescription[clean]; !seen {
				idx.byDescription[clean] = rec
				idx.Descriptions = append(idx.Descriptions, clean)
			}
		}
	}

	return idx, nil
}

// SharesCommonCategory reports whether any record under subcategory has the
// given common category. An empty common category never matches.
func (idx *Index) SharesCommonCategory(subcategory, common string) bool {
	if common == "" {
		return false
	}
	_, ok := idx.commonBySubcategory[subcategory][common]
	return ok
}

// RecordForDescription returns the first ICD-10 record whose cleaned
// description is clean.
func (idx *Index) RecordForDescription(clean string) (types.CodeRecord, bool) {
	rec, ok := idx.byDescription[clean]
	return rec, ok
}
