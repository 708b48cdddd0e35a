package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

func TestNewSubcategoryValidator_EmptyReference(t *testing.T) {
	tests := []struct {
		name string
		ref  []string
	}{
		{name: "nil", ref: nil},
		{name: "blank entries only", ref: []string{"", "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewSubcategoryValidator(tt.ref)
			assert.ErrorIs(t, err, ErrEmptyReference)
			assert.Nil(t, v)
		})
	}
}

func TestSubcategoryValidator_Accept(t *testing.T) {
	v, err := NewSubcategoryValidator([]string{
		"cholera (a00)",
		"Intestinal infectious diseases (A00-A09)",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	tests := []struct {
		name string
		want bool
	}{
		{name: "Cholera", want: true},
		{name: "intestinal infectious", want: true},
		{name: "INTESTINAL INFECTIOUS DISEASES", want: true},
		{name: "Typhoid", want: false},
		{name: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Accept(tt.name))
		})
	}
}

func TestTableValidator_PartShapes(t *testing.T) {
	v := NewTableValidator(types.EditionICD10, types.VariantPart)

	result := v.ValidateAll([]types.CodeRecord{
		{Code: "a00", Category: "c", Subcategory: "s"},
		{Code: "a00.1", Category: "c", Subcategory: "s"},
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, 2, result.RecordsValidated)
	require.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, "shape", result.Errors[0].Rule)
	assert.Equal(t, 2, result.Errors[0].RowNumber)
}

func TestTableValidator_Duplicates(t *testing.T) {
	records := []types.CodeRecord{{Code: "001"}, {Code: "001"}}

	part := NewTableValidator(types.EditionICD9, types.VariantPart).ValidateAll(records)
	assert.False(t, part.IsValid)
	assert.Equal(t, 1, part.ErrorCount)

	full := NewTableValidator(types.EditionICD9, types.VariantFull).ValidateAll(records)
	assert.True(t, full.IsValid)
	assert.Equal(t, 1, full.WarningCount)
}

func TestTableValidator_RecordRules(t *testing.T) {
	v := NewTableValidator(types.EditionICD9, types.VariantFull)

	errs := v.ValidateRecord(types.CodeRecord{}, 3)
	require.Len(t, errs, 1)
	assert.Equal(t, "required", errs[0].Rule)

	errs = v.ValidateRecord(types.CodeRecord{Code: "V01", Subcategory: "x"}, 4)
	require.Len(t, errs, 2)
	assert.Equal(t, "lowercase", errs[0].Rule)
	assert.Equal(t, "hierarchy", errs[1].Rule)
	assert.Equal(t, SeverityWarning, errs[1].Severity)
}

func TestFormatErrorsAndLog(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	errs := []*ValidationError{{Severity: SeverityError, Field: "code", Value: "x", Message: "bad", RowNumber: 7}}
	out := FormatErrors(errs)
	assert.Contains(t, out, "[ERROR] Row 7, Field 'code': bad (value: 'x')")

	path := filepath.Join(t.TempDir(), "validation.log")
	require.NoError(t, WriteErrorLog(errs, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Row 7")
}
