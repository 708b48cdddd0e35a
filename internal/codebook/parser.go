package codebook

import (
	"fmt"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/logging"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/normalize"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/validation"
)

const (
	detailOutsideSubcategories = "outside subcategories"
	detailInsideSubcategory    = "inside subcategory"
)

// Options configures a Parser.
type Options struct {
	Edition types.Edition
	Variant types.Variant

	// Reference is the list of genuine ICD-10 subcategory names. Required
	// for ICD-10.
	Reference []string

	// Logger receives one entry per diagnostic. Nil discards them.
	Logger logging.Logger
}

// ParseStats counts what happened to the input lines.
type ParseStats struct {
	LinesRead      int
	CodeLines      int
	RecordsEmitted int
	CodesDropped   int
}

// ParseResult is the outcome of one parse.
type ParseResult struct {
	Records     []types.CodeRecord
	Diagnostics []Diagnostic
	Stats       ParseStats
}

// Parser converts codebook lines into code records for one edition and
// variant. A Parser holds no per-parse state and may be reused.
type Parser struct {
	edition    types.Edition
	variant    types.Variant
	classifier Classifier
	normalizer normalize.CodeNormalizer
	validator  *validation.SubcategoryValidator
	logger     logging.Logger
}

// NewParser validates the options and builds a Parser.
//
// RETURNS:
//   - error wrapping validation.ErrEmptyReference when an ICD-10 parser has
//     no reference subcategories
func NewParser(opts Options) (*Parser, error) {
	p := &Parser{
		edition:    opts.Edition,
		variant:    opts.Variant,
		classifier: NewClassifier(opts.Edition),
		normalizer: normalize.NewCodeNormalizer(opts.Edition, opts.Variant),
		logger:     opts.Logger,
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}

	if opts.Edition == types.EditionICD10 {
		v, err := validation.NewSubcategoryValidator(opts.Reference)
		if err != nil {
			return nil, fmt.Errorf("failed to build icd10 parser: %w", err)
		}
		p.validator = v
	}

	return p, nil
}

// Parse processes lines in order and returns the records in the order their
// code lines appear.
func (p *Parser) Parse(lines []string) *ParseResult {
	result := &ParseResult{
		Records: make([]types.CodeRecord, 0, len(lines)/2),
	}
	result.Stats.LinesRead = len(lines)

	tracker := NewTracker(p.edition, p.validator)

	report := func(d Diagnostic) {
		result.Diagnostics = append(result.Diagnostics, d)
		if d.Kind == DiagRepairedCode || d.Detail == detailInsideSubcategory {
			p.logger.Debug("%s", d)
			return
		}
		p.logger.Warn("%s", d)
	}

	for _, cl := range p.classifier.Classify(lines) {
		switch l := cl.(type) {
		case CodeLine:
			state := tracker.State()
			if p.edition == types.EditionICD10 && !state.SubcategoryActive {
				report(Diagnostic{Kind: DiagUnrecognizedLine, Line: l.Number, Text: l.Text, Detail: detailOutsideSubcategories})
				continue
			}
			result.Stats.CodeLines++

			norm := p.normalizer.Normalize(l.Token, l.Decimal)
			if !norm.Keep {
				result.Stats.CodesDropped++
				continue
			}
			if norm.Repaired {
				report(Diagnostic{Kind: DiagRepairedCode, Line: l.Number, Text: l.Text, Detail: norm.Code})
			}

			result.Records = append(result.Records, types.CodeRecord{
				Code:        norm.Code,
				Description: normalize.Lower(l.Description),
				Subcategory: state.Subcategory,
				Category:    state.Category,
			})

		case SubcategoryHeader:
			if !tracker.Apply(l) {
				report(Diagnostic{Kind: DiagRejectedSubcategory, Line: l.Number, Text: l.Name})
			}

		case Unrecognized:
			if l.Reason == ReasonCategoryWithoutSubcategory {
				report(Diagnostic{Kind: DiagCategoryWithoutSubcategory, Line: l.Number, Text: l.Text})
				continue
			}
			detail := detailOutsideSubcategories
			if tracker.State().SubcategoryActive {
				detail = detailInsideSubcategory
			}
			report(Diagnostic{Kind: DiagUnrecognizedLine, Line: l.Number, Text: l.Text, Detail: detail})

		default:
			tracker.Apply(cl)
		}
	}

	result.Stats.RecordsEmitted = len(result.Records)
	return result
}
