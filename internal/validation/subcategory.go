package validation

import (
	"errors"
	"strings"
)

// ErrEmptyReference is returned when an ICD-10 parse is started without a
// reference subcategory list.
var ErrEmptyReference = errors.New("reference subcategory list is empty")

// SubcategoryValidator decides whether a candidate ICD-10 subcategory header
// is genuine. Header-shaped lines that are not in the reference list are
// rejected and the hierarchy keeps its previous subcategory.
type SubcategoryValidator struct {
	reference []string
}

// NewSubcategoryValidator builds a validator from the reference entries.
// Entries are compared case-insensitively; blank entries are ignored.
func NewSubcategoryValidator(reference []string) (*SubcategoryValidator, error) {
	entries := make([]string, 0, len(reference))
	for _, r := range reference {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			entries = append(entries, r)
		}
	}
	if len(entries) == 0 {
		return nil, ErrEmptyReference
	}
	return &SubcategoryValidator{reference: entries}, nil
}

// Accept reports whether the candidate name occurs inside any reference
// entry. "Cholera" is accepted by the entry "cholera (a00)".
func (v *SubcategoryValidator) Accept(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, entry := range v.reference {
		if strings.Contains(entry, name) {
			return true
		}
	}
	return false
}

// Len returns the number of reference entries.
func (v *SubcategoryValidator) Len() int {
	return len(v.reference)
}
