package codebook

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// Classifier labels every line of a codebook. Rules are tried in a fixed
// order and the first match wins. A rule may look one line ahead.
type Classifier interface {
	Classify(lines []string) []ClassifiedLine
}

// NewClassifier returns the rule set for the edition.
func NewClassifier(edition types.Edition) Classifier {
	if edition == types.EditionICD9 {
		return icd9Classifier{}
	}
	return icd10Classifier{}
}

// =============================================================================
// ICD-10
// =============================================================================

var (
	icd10Chapter     = regexp.MustCompile(`^Chapter \d+\s*$`)
	icd10Subcategory = regexp.MustCompile(`^([A-Z][\w\s,\[\]-]*?) (\(([A-Z]\d[A-Z0-9]?)(-[A-Z]\d[A-Z0-9]?)?\))$`)
	icd10Code        = regexp.MustCompile(`^((?i:[a-z]\d[a-z0-9]{0,2}(?:\.\d+)?[a-z]?))\s+(.*)$`)
)

type icd10Classifier struct{}

func (icd10Classifier) Classify(lines []string) []ClassifiedLine {
	out := make([]ClassifiedLine, 0, len(lines))
	titleNext := false

	for i, raw := range lines {
		line := Line{Number: i + 1, Text: strings.TrimSpace(raw)}

		if titleNext {
			titleNext = false
			out = append(out, CategoryHeader{Line: line, Title: line.Text})
			continue
		}

		switch {
		case line.Text == "":
			out = append(out, Blank{Line: line})

		case icd10Chapter.MatchString(line.Text):
			out = append(out, ChapterMarker{Line: line})
			titleNext = true

		case icd10Subcategory.MatchString(line.Text):
			m := icd10Subcategory.FindStringSubmatch(line.Text)
			out = append(out, SubcategoryHeader{Line: line, Name: m[1], CodeRange: m[2]})

		case icd10Code.MatchString(line.Text):
			m := icd10Code.FindStringSubmatch(line.Text)
			out = append(out, CodeLine{Line: line, Token: m[1], Description: m[2]})

		default:
			out = append(out, Unrecognized{Line: line, Reason: ReasonNoRule})
		}
	}

	return out
}

// =============================================================================
// ICD-9
// =============================================================================

// The spelling of the second marker matches the source codebook.
const (
	markerAdditionalCodes = "ADDITIONAL DIAGNOSTIC CODES"
	markerSupplementary   = "SUPPLEMENTARY CLASSIFICATION OF FACTORS INFLUENCING HEATLH STATUS AND CONTACT WITH HEALTH SERVICES"

	supplementarySubcategory = "PERSONS WITH HEALTH HAZARDS RELATED TO COMMUNICABLE DISEASES (V01 – V07.9)"
)

var (
	icd9Code        = regexp.MustCompile(`^([0-9]+|[VE][0-9]+|[0-9]{2}[A-Z])(\.\d+)?\s+(.*)$`)
	icd9Subcategory = regexp.MustCompile(`^(.*?)\s+\(([VE]?\d+(\.\d+)?\s*[-–]\s*[VE]?\d+(\.\d+)?)\)$`)
)

type icd9Classifier struct{}

func (icd9Classifier) Classify(lines []string) []ClassifiedLine {
	out := make([]ClassifiedLine, 0, len(lines))

	for i, raw := range lines {
		line := Line{Number: i + 1, Text: strings.TrimSpace(raw)}
		upper := strings.ToUpper(line.Text)

		switch {
		case upper == markerAdditionalCodes:
			out = append(out, ExceptionMarker{Line: line, Category: markerAdditionalCodes, Subcategory: markerAdditionalCodes})

		case upper == markerSupplementary:
			out = append(out, ExceptionMarker{Line: line, Category: markerSupplementary, Subcategory: supplementarySubcategory})

		case line.Text == "":
			out = append(out, Blank{Line: line})

		case icd9Code.MatchString(line.Text):
			m := icd9Code.FindStringSubmatch(line.Text)
			out = append(out, CodeLine{Line: line, Token: m[1], Decimal: m[2], Description: m[3]})

		case icd9Subcategory.MatchString(line.Text):
			m := icd9Subcategory.FindStringSubmatch(line.Text)
			out = append(out, SubcategoryHeader{Line: line, Name: strings.TrimSpace(m[1]), CodeRange: m[2]})

		case i+1 < len(lines) && icd9Subcategory.MatchString(strings.TrimSpace(lines[i+1])):
			out = append(out, CategoryHeader{Line: line, Title: line.Text})

		default:
			out = append(out, Unrecognized{Line: line, Reason: ReasonCategoryWithoutSubcategory})
		}
	}

	return out
}
