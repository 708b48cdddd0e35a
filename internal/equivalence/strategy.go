package equivalence

import (
	"github.com/ginjaninja78/icd-codebook-mapper/internal/fuzzy"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// Score cutoffs, on the 0-100 scale of fuzzy.Scorer. A candidate is
// accepted when its score is at least the cutoff.
const (
	SubcategoryThreshold = 80
	DescriptionThreshold = 50
)

// Query is one ICD-9 record prepared for matching.
type Query struct {
	Record           types.CodeRecord
	DescriptionClean string
}

// Outcome is a strategy's decision for one query.
type Outcome struct {
	Subcategory        string
	Stage              types.MatchStage
	MatchedDescription string
	Score              float64
}

func unmatched() Outcome {
	return Outcome{Stage: types.StageUnmatched}
}

// Strategy is one stage of the resolver chain. ok is true when the strategy
// decided the outcome and later strategies must not run.
type Strategy interface {
	Name() string
	Resolve(q Query) (out Outcome, ok bool)
}

// =============================================================================
// SKIP-LIST
// =============================================================================

// skipListStrategy routes records under denylisted subcategories straight to
// description matching. It always decides for those records.
type skipListStrategy struct {
	rules       *Rules
	description *descriptionStrategy
}

func (s *skipListStrategy) Name() string { return "skip-list" }

func (s *skipListStrategy) Resolve(q Query) (Outcome, bool) {
	if !s.rules.Skipped(q.Record.Subcategory) {
		return Outcome{}, false
	}
	out, ok := s.description.Resolve(q)
	if !ok {
		return unmatched(), true
	}
	out.Stage = types.StageSkippedSubcategoryDescription
	return out, true
}

// =============================================================================
// MANUAL LEXICON
// =============================================================================

type manualStrategy struct {
	rules *Rules
}

func (s *manualStrategy) Name() string { return "manual" }

func (s *manualStrategy) Resolve(q Query) (Outcome, bool) {
	target, ok := s.rules.ManualTarget(q.Record.Subcategory)
	if !ok {
		return Outcome{}, false
	}
	return Outcome{Subcategory: target, Stage: types.StageManual, Score: 100}, true
}

// =============================================================================
// SUBCATEGORY FUZZY
// =============================================================================

// subcategoryStrategy matches the ICD-9 subcategory name against the distinct
// ICD-10 subcategory names. The best candidate is only accepted when some
// ICD-10 record under it shares the ICD-9 record's common category.
type subcategoryStrategy struct {
	index  *Index
	scorer fuzzy.Scorer
}

func (s *subcategoryStrategy) Name() string { return "subcategory" }

func (s *subcategoryStrategy) Resolve(q Query) (Outcome, bool) {
	if q.Record.Subcategory == "" {
		return Outcome{}, false
	}
	best, ok := fuzzy.ExtractOne(s.scorer, q.Record.Subcategory, s.index.Subcategories, SubcategoryThreshold)
	if !ok || !s.index.SharesCommonCategory(best.Choice, q.Record.CommonCategory) {
		return Outcome{}, false
	}
	return Outcome{Subcategory: best.Choice, Stage: types.StageSubcategoryFuzzy, Score: best.Score}, true
}

// =============================================================================
// DESCRIPTION FUZZY
// =============================================================================

// descriptionStrategy matches the cleaned ICD-9 description against the
// distinct cleaned ICD-10 descriptions and takes the subcategory of the
// matched record, provided the common categories agree.
type descriptionStrategy struct {
	index  *Index
	scorer fuzzy.Scorer
}

func (s *descriptionStrategy) Name() string { return "description" }

func (s *descriptionStrategy) Resolve(q Query) (Outcome, bool) {
	if q.DescriptionClean == "" || q.Record.CommonCategory == "" {
		return Outcome{}, false
	}
	best, ok := fuzzy.ExtractOne(s.scorer, q.DescriptionClean, s.index.Descriptions, DescriptionThreshold)
	if !ok {
		return Outcome{}, false
	}
	rec, found := s.index.RecordForDescription(best.Choice)
	if !found || rec.Subcategory == "" || rec.CommonCategory != q.Record.CommonCategory {
		return Outcome{}, false
	}
	return Outcome{
		Subcategory:        rec.Subcategory,
		Stage:              types.StageDescriptionFuzzy,
		MatchedDescription: rec.Description,
		Score:              best.Score,
	}, true
}
