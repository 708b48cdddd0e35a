package codebook

import "fmt"

// DiagnosticKind names a soft anomaly found during a parse. Diagnostics are
// advisory: they never change which records are emitted.
type DiagnosticKind string

const (
	DiagUnrecognizedLine           DiagnosticKind = "unrecognized_line"
	DiagRejectedSubcategory        DiagnosticKind = "rejected_subcategory"
	DiagCategoryWithoutSubcategory DiagnosticKind = "category_without_subcategory"
	DiagRepairedCode               DiagnosticKind = "repaired_code"
)

// DiagnosticKinds lists every kind in report order.
var DiagnosticKinds = []DiagnosticKind{
	DiagUnrecognizedLine,
	DiagRejectedSubcategory,
	DiagCategoryWithoutSubcategory,
	DiagRepairedCode,
}

// Diagnostic is one reported anomaly.
type Diagnostic struct {
	Kind   DiagnosticKind
	Line   int
	Text   string
	Detail string
}

func (d Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Text)
	}
	return fmt.Sprintf("line %d: %s: %s (%s)", d.Line, d.Kind, d.Text, d.Detail)
}

// CountByKind tallies diagnostics per kind.
func CountByKind(diags []Diagnostic) map[DiagnosticKind]int {
	counts := make(map[DiagnosticKind]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}
