// =============================================================================
// ICD Codebook Mapper - Code Normalizer
// =============================================================================
//
// Turns the raw code token captured from a code line into the code written
// to the output table, and decides whether the code belongs in the table
// variant being built.
//
//   ICD-9  full: "0019" becomes "001.9" (four digits, no decimal part)
//   ICD-9  part: only three character codes without a decimal part
//   ICD-10 full: token as written
//   ICD-10 part: only letter, digit, letter-or-digit codes
//
// Codes are always lowercased. Dropping a code is silent.
//
// =============================================================================

package normalize

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

var icd10PartShape = regexp.MustCompile(`^[a-z]\d[a-z0-9]$`)

// CodeResult is the outcome of normalizing one code token.
type CodeResult struct {
	// Code is the normalized code. Empty when Keep is false.
	Code string

	// Keep is false when the code does not belong in the variant.
	Keep bool

	// Repaired is true when a missing decimal point was inserted.
	Repaired bool
}

// CodeNormalizer applies the rules of one edition and variant.
type CodeNormalizer struct {
	edition types.Edition
	variant types.Variant
}

// NewCodeNormalizer returns a normalizer for the given table.
func NewCodeNormalizer(edition types.Edition, variant types.Variant) CodeNormalizer {
	return CodeNormalizer{edition: edition, variant: variant}
}

// Normalize processes a code token. decimal is the ".N" part captured
// separately from the token, or empty. For ICD-10 the decimal part may also
// be part of token itself.
func (n CodeNormalizer) Normalize(token, decimal string) CodeResult {
	if n.edition == types.EditionICD9 {
		return n.icd9(token, decimal)
	}
	return n.icd10(token + decimal)
}

func (n CodeNormalizer) icd9(token, decimal string) CodeResult {
	token = strings.ToLower(token)
	decimal = strings.ToLower(decimal)

	if n.variant == types.VariantPart {
		if decimal != "" || len(token) != 3 {
			return CodeResult{}
		}
		return CodeResult{Code: token, Keep: true}
	}

	if decimal == "" && len(token) == 4 && isDigit(token[0]) {
		return CodeResult{Code: token[:3] + "." + token[3:], Keep: true, Repaired: true}
	}
	return CodeResult{Code: token + decimal, Keep: true}
}

func (n CodeNormalizer) icd10(code string) CodeResult {
	code = strings.ToLower(code)

	if n.variant == types.VariantPart {
		if strings.Contains(code, ".") || !icd10PartShape.MatchString(code) {
			return CodeResult{}
		}
	}
	return CodeResult{Code: code, Keep: true}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// DedupeCodes removes records whose code was already seen, keeping the first.
func DedupeCodes(records []types.CodeRecord) (kept []types.CodeRecord, removed int) {
	seen := make(map[string]struct{}, len(records))
	kept = make([]types.CodeRecord, 0, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.Code]; dup {
			removed++
			continue
		}
		seen[rec.Code] = struct{}{}
		kept = append(kept, rec)
	}
	return kept, removed
}
