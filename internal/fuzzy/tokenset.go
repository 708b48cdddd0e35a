package fuzzy

import (
	"sort"
	"strings"
	"unicode"
)

// TokenSetScorer compares two strings as sets of words.
//
// Both inputs are lowercased and every character that is not a letter or a
// digit becomes a space. Words shared by both sides are compared separately
// from the words unique to each side, so extra words on one side do not
// lower the score when all words of the other side are present.
type TokenSetScorer struct{}

// Score implements Scorer.
func (TokenSetScorer) Score(a, b string) float64 {
	return TokenSetRatio(a, b)
}

// TokenSetRatio is the token-set similarity of a and b, 0-100.
func TokenSetRatio(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var sect, onlyA, onlyB []string
	for tok := range tokensA {
		if _, shared := tokensB[tok]; shared {
			sect = append(sect, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tokensB {
		if _, shared := tokensA[tok]; !shared {
			onlyB = append(onlyB, tok)
		}
	}

	// one side is a subset of the other
	if len(sect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	sort.Strings(sect)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sectStr := []rune(strings.Join(sect, " "))
	diffA := []rune(strings.Join(onlyA, " "))
	diffB := []rune(strings.Join(onlyB, " "))

	sectLen := len(sectStr)
	sep := 0
	if sectLen > 0 {
		sep = 1
	}
	sectALen := sectLen + sep + len(diffA)
	sectBLen := sectLen + sep + len(diffB)

	// "sect diffA" vs "sect diffB" share the prefix, so their distance is
	// the distance of the differences alone.
	result := normalizedSimilarity(indelDistance(diffA, diffB), sectALen+sectBLen)
	if sectLen == 0 {
		return result
	}

	// "sect" vs "sect diffX" differ only by the appended part.
	sectARatio := normalizedSimilarity(sep+len(diffA), sectLen+sectALen)
	sectBRatio := normalizedSimilarity(sep+len(diffB), sectLen+sectBLen)

	return max(result, sectARatio, sectBRatio)
}

// process lowercases s, turns non-alphanumerics into spaces and trims it.
func process(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(process(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func normalizedSimilarity(dist, lenSum int) float64 {
	if lenSum == 0 {
		return 100
	}
	return 100 * (1 - float64(dist)/float64(lenSum))
}

// indelDistance counts the insertions and deletions needed to turn a into b.
func indelDistance(a, b []rune) int {
	return len(a) + len(b) - 2*lcsLength(a, b)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
