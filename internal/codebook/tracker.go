package codebook

import (
	"github.com/ginjaninja78/icd-codebook-mapper/internal/normalize"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/validation"
)

// HierarchyState is the category and subcategory in force at a point of
// the parse. Empty strings mean "not seen yet".
type HierarchyState struct {
	Category    string
	Subcategory string

	// SubcategoryActive gates ICD-10 code lines. It becomes true at the first
	// accepted subcategory header and stays true for the rest of the parse.
	SubcategoryActive bool
}

// Tracker folds classified lines into a HierarchyState.
type Tracker struct {
	edition   types.Edition
	validator *validation.SubcategoryValidator
	state     HierarchyState
}

// NewTracker creates a tracker. validator is required for ICD-10 and
// ignored for ICD-9.
func NewTracker(edition types.Edition, validator *validation.SubcategoryValidator) *Tracker {
	return &Tracker{edition: edition, validator: validator}
}

// State returns a snapshot of the current hierarchy.
func (t *Tracker) State() HierarchyState {
	return t.state
}

// Apply updates the state for one classified line. It returns false when a
// subcategory header was rejected; the state is then left unchanged.
func (t *Tracker) Apply(cl ClassifiedLine) (accepted bool) {
	switch l := cl.(type) {
	case CategoryHeader:
		t.state.Category = normalize.Lower(l.Title)
		t.state.Subcategory = ""

	case ExceptionMarker:
		t.state.Category = normalize.Lower(l.Category)
		t.state.Subcategory = normalize.Lower(l.Subcategory)

	case SubcategoryHeader:
		if t.edition == types.EditionICD10 {
			if t.validator == nil || !t.validator.Accept(l.Name) {
				return false
			}
			t.state.SubcategoryActive = true
		}
		t.state.Subcategory = normalize.Lower(l.Name)
	}
	return true
}
