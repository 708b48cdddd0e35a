// Package fuzzy scores string similarity on a 0-100 scale and picks the best
// candidate from a list.
//
// The resolver depends only on the Scorer interface, so the scoring function
// can be replaced without touching the matching stages.
package fuzzy

// Scorer returns the similarity of a and b on a 0-100 scale.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(a, b string) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(a, b string) float64

func (f ScorerFunc) Score(a, b string) float64 { return f(a, b) }

// Match is the best candidate found by ExtractOne.
type Match struct {
	Choice string
	Score  float64
	Index  int
}

// ExtractOne returns the highest scoring choice whose score is at least
// cutoff. On equal scores the earliest choice wins. ok is false when no
// choice reaches the cutoff.
func ExtractOne(scorer Scorer, query string, choices []string, cutoff float64) (best Match, ok bool) {
	best.Index = -1
	for i, choice := range choices {
		score := scorer.Score(query, choice)
		if score < cutoff {
			continue
		}
		if !ok || score > best.Score {
			best = Match{Choice: choice, Score: score, Index: i}
			ok = true
			if score >= 100 {
				break
			}
		}
	}
	return best, ok
}
