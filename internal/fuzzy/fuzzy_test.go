package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "diseases of appendix", b: "diseases of appendix", want: 100},
		{name: "word order ignored", a: "appendix of diseases", b: "diseases of appendix", want: 100},
		{name: "case and punctuation ignored", a: "Diseases, of APPENDIX!", b: "diseases of appendix", want: 100},
		{name: "subset scores full", a: "hernia", b: "hernia of abdominal cavity", want: 100},
		{name: "repeated words collapse", a: "fuzzy was a bear", b: "fuzzy fuzzy was a bear", want: 100},
		{name: "single token edit", a: "abcd", b: "abce", want: 75},
		{name: "shared and unique tokens", a: "a b", b: "a c", want: 200.0 / 3},
		{name: "disjoint", a: "abc", b: "xyz", want: 0},
		{name: "empty side", a: "", b: "cholera", want: 0},
		{name: "only punctuation", a: "!!!", b: "cholera", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenSetRatio(tt.a, tt.b), 0.01)
		})
	}
}

func TestTokenSetRatio_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"intestinal infectious diseases", "intestinal infectious diseases (a00-a09)"},
		{"appendicitis", "diseases of appendix"},
		{"carcinoma in situ", "in situ neoplasms"},
	}
	for _, p := range pairs {
		assert.InDelta(t, TokenSetRatio(p[0], p[1]), TokenSetRatio(p[1], p[0]), 0.0001, "%q vs %q", p[0], p[1])
	}
}

func TestTokenSetRatio_Bounds(t *testing.T) {
	score := TokenSetRatio("appendicitis", "diseases of appendix")
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 100.0)
}

func TestTokenSetScorer_ImplementsScorer(t *testing.T) {
	var s Scorer = TokenSetScorer{}
	assert.Equal(t, 100.0, s.Score("Cholera", "cholera"))
}

func stubScorer(scores map[string]float64) Scorer {
	return ScorerFunc(func(_, choice string) float64 {
		return scores[choice]
	})
}

func TestExtractOne(t *testing.T) {
	tests := []struct {
		name       string
		scores     map[string]float64
		choices    []string
		cutoff     float64
		wantOK     bool
		wantChoice string
		wantIndex  int
	}{
		{
			name:       "best above cutoff",
			scores:     map[string]float64{"a": 60, "b": 90, "c": 85},
			choices:    []string{"a", "b", "c"},
			cutoff:     80,
			wantOK:     true,
			wantChoice: "b",
			wantIndex:  1,
		},
		{
			name:       "tie keeps first seen",
			scores:     map[string]float64{"a": 85, "b": 85},
			choices:    []string{"a", "b"},
			cutoff:     80,
			wantOK:     true,
			wantChoice: "a",
			wantIndex:  0,
		},
		{
			name:       "score equal to cutoff accepted",
			scores:     map[string]float64{"a": 80},
			choices:    []string{"a"},
			cutoff:     80,
			wantOK:     true,
			wantChoice: "a",
			wantIndex:  0,
		},
		{
			name:      "below cutoff rejected",
			scores:    map[string]float64{"a": 79.99},
			choices:   []string{"a"},
			cutoff:    80,
			wantOK:    false,
			wantIndex: -1,
		},
		{
			name:      "no choices",
			choices:   nil,
			cutoff:    50,
			wantOK:    false,
			wantIndex: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := ExtractOne(stubScorer(tt.scores), "query", tt.choices, tt.cutoff)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantIndex, m.Index)
			if tt.wantOK {
				assert.Equal(t, tt.wantChoice, m.Choice)
			}
		})
	}
}
