// Package codebook turns the raw text of an ICD codebook into flat code
// records.
//
// A parse runs in three steps over one ordered sequence of lines:
//
//	Classifier  labels every line (chapter marker, category, subcategory,
//	            code line, exception marker, blank, unrecognized)
//	Tracker     folds the labels into the current category and subcategory
//	Parser      stamps each accepted code line with the tracker's state
//
// The hierarchy lives in one Tracker value per parse, so separate parses can
// run concurrently.
package codebook

// Line is a trimmed source line and its 1-based position in the file.
type Line struct {
	Number int
	Text   string
}

// Source returns the line a classification was made from.
func (l Line) Source() Line { return l }

func (Line) classified() {}

// ClassifiedLine is the label attached to one source line. The concrete types
// below are the only implementations.
type ClassifiedLine interface {
	Source() Line
	classified()
}

// ChapterMarker is an ICD-10 "Chapter N" line. The next line is the
// chapter title.
type ChapterMarker struct {
	Line
}

// CategoryHeader opens a new category. Title is the text as written.
type CategoryHeader struct {
	Line
	Title string
}

// SubcategoryHeader opens a new subcategory. Name excludes the trailing
// parenthesised code range.
type SubcategoryHeader struct {
	Line
	Name      string
	CodeRange string
}

// CodeLine carries a code token and its description. Decimal holds the
// ".N" part when the edition captures it separately.
type CodeLine struct {
	Line
	Token       string
	Decimal     string
	Description string
}

// ExceptionMarker is a hard-coded header line that sets the category and
// subcategory to fixed values.
type ExceptionMarker struct {
	Line
	Category    string
	Subcategory string
}

// Blank is an empty line.
type Blank struct {
	Line
}

// UnrecognizedReason explains why a line matched no rule.
type UnrecognizedReason string

const (
	ReasonNoRule                     UnrecognizedReason = "no matching rule"
	ReasonCategoryWithoutSubcategory UnrecognizedReason = "category without subcategory"
)

// Unrecognized is a non-blank line no rule claimed.
type Unrecognized struct {
	Line
	Reason UnrecognizedReason
}
