package equivalence

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// ManualLink is one hand-curated ICD-9 -> ICD-10 subcategory link.
type ManualLink struct {
	ICD9  string `yaml:"icd9"`
	ICD10 string `yaml:"icd10"`
}

// RulesFile is the YAML shape of a rules file.
type RulesFile struct {
	SkipSubcategories []string     `yaml:"skip_subcategories"`
	Manual            []ManualLink `yaml:"manual"`
}

// Rules holds the skip-list and the manual lexicon, keyed by lowercased
// ICD-9 subcategory.
type Rules struct {
	skip   map[string]struct{}
	manual map[string]string
}

// DefaultRules returns the built-in skip-list and manual lexicon.
func DefaultRules() (*Rules, error) {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in rules: %w", err)
	}
	return rules, nil
}

// LoadRules reads a rules file. An empty path returns DefaultRules.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes rules YAML. Keys and targets are trimmed and
// lowercased; a repeated manual key keeps its first target.
func ParseRules(data []byte) (*Rules, error) {
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return NewRules(file), nil
}

// NewRules builds Rules from an already decoded file.
func NewRules(file RulesFile) *Rules {
	r := &Rules{
		skip:   make(map[string]struct{}, len(file.SkipSubcategories)),
		manual: make(map[string]string, len(file.Manual)),
	}
	for _, s := range file.SkipSubcategories {
		if s = lower(s); s != "" {
			r.skip[s] = struct{}{}
		}
	}
	for _, m := range file.Manual {
		key, target := lower(m.ICD9), lower(m.ICD10)
		if key == "" || target == "" {
			continue
		}
		if _, dup := r.manual[key]; !dup {
			r.manual[key] = target
		}
	}
	return r
}

// Skipped reports whether subcategory is on the skip-list.
func (r *Rules) Skipped(subcategory string) bool {
	_, ok := r.skip[subcategory]
	return ok
}

// ManualTarget returns the curated ICD-10 subcategory for subcategory.
func (r *Rules) ManualTarget(subcategory string) (string, bool) {
	target, ok := r.manual[subcategory]
	return target, ok
}

// SkipCount and ManualCount report the size of each list.
func (r *Rules) SkipCount() int   { return len(r.skip) }
func (r *Rules) ManualCount() int { return len(r.manual) }

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
