// Package equivalence links ICD-9 records to ICD-10 subcategories.
//
// Each ICD-9 record goes through an ordered chain of strategies and the
// first one that decides wins:
//
//	skip-list     denylisted subcategory: description matching only
//	manual        curated subcategory link
//	subcategory   fuzzy subcategory name, same common category
//	description   fuzzy description, same common category
//
// Records no strategy decides are left unmatched.
package equivalence

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/fuzzy"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/logging"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/normalize"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// Options configures a Resolver.
type Options struct {
	// Rules defaults to DefaultRules.
	Rules *Rules

	// Scorer defaults to fuzzy.TokenSetScorer.
	Scorer fuzzy.Scorer

	// Workers bounds ResolveAll's parallelism. Values below 1 mean 1.
	Workers int

	Logger logging.Logger

	// Progress, when set, is called once per resolved record. It is called
	// from several goroutines.
	Progress func()
}

// Summary counts the outcome of a ResolveAll call.
type Summary struct {
	Total     int
	Matched   int
	Unmatched int
	ByStage   map[types.MatchStage]int
}

// Resolver runs the strategy chain. It is safe for concurrent use.
type Resolver struct {
	chain    []Strategy
	index    *Index
	workers  int
	logger   logging.Logger
	progress func()
}

// NewResolver indexes the ICD-10 records and builds the chain.
//
// RETURNS:
//   - error wrapping ErrNoReferenceRecords when icd10 is empty
func NewResolver(icd10 []types.CodeRecord, opts Options) (*Resolver, error) {
	index, err := NewIndex(icd10)
	if err != nil {
		return nil, fmt.Errorf("failed to build resolver: %w", err)
	}

	rules := opts.Rules
	if rules == nil {
		if rules, err = DefaultRules(); err != nil {
			return nil, err
		}
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = fuzzy.TokenSetScorer{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	description := &descriptionStrategy{index: index, scorer: scorer}
	return &Resolver{
		chain: []Strategy{
			&skipListStrategy{rules: rules, description: description},
			&manualStrategy{rules: rules},
			&subcategoryStrategy{index: index, scorer: scorer},
			description,
		},
		index:    index,
		workers:  workers,
		logger:   logger,
		progress: opts.Progress,
	}, nil
}

// Index returns the ICD-10 index the resolver matches against.
func (r *Resolver) Index() *Index {
	return r.index
}

// Resolve links one ICD-9 record.
func (r *Resolver) Resolve(rec types.CodeRecord) types.EquivalenceRecord {
	q := Query{Record: rec, DescriptionClean: normalize.CleanDescription(rec.Description)}

	out := unmatched()
	decidedBy := "none"
	for _, s := range r.chain {
		if o, ok := s.Resolve(q); ok {
			out, decidedBy = o, s.Name()
			break
		}
	}

	// An empty target is always reported as unmatched.
	if out.Subcategory == "" {
		out = unmatched()
	}

	r.logger.Debug("code %s: %s -> %q (stage %s, score %.1f)", rec.Code, decidedBy, out.Subcategory, out.Stage, out.Score)

	return types.EquivalenceRecord{
		CodeRecord:         rec,
		DescriptionClean:   q.DescriptionClean,
		ICD10Subcategory:   out.Subcategory,
		Stage:              out.Stage,
		MatchedDescription: out.MatchedDescription,
	}
}

// ResolveAll resolves every record in parallel. The output has the same
// order as the input. It stops early only when ctx is cancelled.
func (r *Resolver) ResolveAll(ctx context.Context, records []types.CodeRecord) ([]types.EquivalenceRecord, Summary, error) {
	out := make([]types.EquivalenceRecord, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := range records {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = r.Resolve(records[i])
			if r.progress != nil {
				r.progress()
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, Summary{}, fmt.Errorf("equivalence resolution interrupted: %w", err)
	}

	return out, Summarize(out), nil
}

// Summarize counts matched and unmatched records and the records per stage.
func Summarize(records []types.EquivalenceRecord) Summary {
	s := Summary{Total: len(records), ByStage: make(map[types.MatchStage]int)}
	for _, rec := range records {
		s.ByStage[rec.Stage]++
		if rec.Matched() {
			s.Matched++
		} else {
			s.Unmatched++
		}
	}
	return s
}
