package converter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/codebook"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/config"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/csvparser"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/validation"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/xlsxparser"
	"github.com/ginjaninja78/icd-codebook-mapper/pkg/utils"
)

const icd9Text = `INFECTIOUS AND PARASITIC DISEASES
INTESTINAL INFECTIOUS DISEASES (001 – 009)
001 Cholera
0010 Due to Vibrio cholerae
002 Typhoid and paratyphoid fevers
OTHER BACTERIAL DISEASES (020 – 041)
002 Typhoid fever repeated
NEOPLASMS
MALIGNANT NEOPLASM OF LIP (140 – 149)
140 Malignant neoplasm of lip
`

const icd10Text = `Chapter 1
Certain infectious and parasitic diseases (A00-B99)
Intestinal infectious diseases (A00-A09)
A00 Cholera
A00.0 Cholera due to Vibrio cholerae 01, biovar cholerae
A01 Typhoid and paratyphoid fevers
`

var taxonomy = xlsxparser.NewTaxonomy([]xlsxparser.TaxonomyRow{
	{ICD9Category: "infectious and parasitic diseases", ICD10Category: "certain infectious and parasitic diseases (a00-b99)", CommonCategory: "infectious"},
	{ICD9Category: "infectious and parasitic diseases", ICD10Category: "other", CommonCategory: "ignored"},
})

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func codes(records []types.CodeRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Code
	}
	return out
}

// =============================================================================
// CATEGORY JOIN
// =============================================================================

func TestNewCategoryJoiner_EmptyTaxonomy(t *testing.T) {
	_, err := NewCategoryJoiner(nil, types.EditionICD9)
	assert.ErrorIs(t, err, ErrEmptyTaxonomy)

	_, err = NewCategoryJoiner(xlsxparser.NewTaxonomy(nil), types.EditionICD10)
	assert.ErrorIs(t, err, ErrEmptyTaxonomy)
}

func TestCategoryJoin(t *testing.T) {
	joiner, err := NewCategoryJoiner(taxonomy, types.EditionICD9)
	require.NoError(t, err)

	in := []types.CodeRecord{
		{Code: "001", Category: "infectious and parasitic diseases"},
		{Code: "140", Category: "neoplasms", CommonCategory: "stale"},
		{Code: "141", Category: "neoplasms"},
		{Code: "e800", Category: "Infectious and Parasitic Diseases "},
	}
	original := append([]types.CodeRecord(nil), in...)

	out, stats := joiner.Join(in)
	assert.Equal(t, original, in, "input must not be modified")
	assert.Equal(t, []string{"001", "140", "141", "e800"}, codes(out))
	assert.Equal(t, "infectious", out[0].CommonCategory)
	assert.Equal(t, "", out[1].CommonCategory)
	assert.Equal(t, "infectious", out[3].CommonCategory)
	assert.Equal(t, JoinStats{Matched: 2, Unmatched: 2, UnmatchedCategories: []string{"neoplasms"}}, stats)

	again, _ := joiner.Join(out)
	assert.Equal(t, out, again)
}

func TestCategoryJoin_EditionKey(t *testing.T) {
	joiner, err := NewCategoryJoiner(taxonomy, types.EditionICD10)
	require.NoError(t, err)

	out, _ := joiner.Join([]types.CodeRecord{{Category: "infectious and parasitic diseases"}})
	assert.Empty(t, out[0].CommonCategory)
}

func TestDedupeFor(t *testing.T) {
	records := []types.CodeRecord{{Code: "002", Subcategory: "a"}, {Code: "002", Subcategory: "b"}}

	kept, removed := DedupeFor(types.EditionICD9, types.VariantPart, records)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "a", kept[0].Subcategory)

	kept, removed = DedupeFor(types.EditionICD9, types.VariantFull, records)
	assert.Zero(t, removed)
	assert.Len(t, kept, 2)

	_, removed = DedupeFor(types.EditionICD10, types.VariantPart, records)
	assert.Zero(t, removed)
}

func TestDescribeUnmatched(t *testing.T) {
	assert.Equal(t, `["a" "b"]`, describeUnmatched(JoinStats{UnmatchedCategories: []string{"a", "b"}}))
	long := JoinStats{UnmatchedCategories: strings.Split("a b c d e f g", " ")}
	assert.Equal(t, `["a" "b" "c" "d" "e"] and 2 more`, describeUnmatched(long))
}

// =============================================================================
// PIPELINE
// =============================================================================

func TestRun_ICD9PartWritesDedupedTable(t *testing.T) {
	dir := t.TempDir()
	job := config.CodebookConfig{
		Name:    "icd9_part",
		Edition: "icd9",
		Variant: "part",
		Input:   writeFile(t, dir, "icd9.txt", icd9Text),
		Output:  "icd9_part",
	}
	sink := &FileSink{Files: utils.NewFileManager(dir), Format: tablewriter.FormatCSV, NameFormat: "{name}"}

	result := New(job, Options{Taxonomy: taxonomy, Sink: sink}).Run(context.Background())
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, filepath.Join(dir, "icd9_part.csv"), result.Output)

	assert.Equal(t, []string{"001", "002", "140"}, codes(result.Records))
	assert.Equal(t, "intestinal infectious diseases", result.Records[1].Subcategory)
	assert.Equal(t, "infectious", result.Records[0].CommonCategory)
	assert.Equal(t, "", result.Records[2].CommonCategory)
	assert.Equal(t, 1, result.Stats.DuplicatesRemoved)
	assert.Equal(t, 1, result.Stats.CodesDropped)
	assert.Equal(t, 1, result.Stats.Uncategorised)
	assert.Zero(t, result.Stats.ValidationErrors)
	assert.True(t, result.Validation.IsValid)
	assert.Positive(t, result.Stats.ProcessingTime)

	written, err := csvparser.ReadCodeTable(result.Output, ",")
	require.NoError(t, err)
	assert.Equal(t, result.Records, written)
}

func TestRun_ICD9FullKeepsDuplicates(t *testing.T) {
	dir := t.TempDir()
	job := config.CodebookConfig{Name: "icd9_full", Edition: "icd9", Variant: "full", Input: writeFile(t, dir, "icd9.txt", icd9Text)}

	result := New(job, Options{Taxonomy: taxonomy, DryRun: true}).Run(context.Background())
	require.NoError(t, result.Error)
	assert.Empty(t, result.Output)

	assert.Equal(t, []string{"001", "001.0", "002", "002", "140"}, codes(result.Records))
	assert.Equal(t, 1, codebook.CountByKind(result.Diagnostics)[codebook.DiagRepairedCode])
	assert.Positive(t, result.Stats.ValidationWarnings)
}

func TestRun_ICD10IntoSQLite(t *testing.T) {
	dir := t.TempDir()
	job := config.CodebookConfig{
		Name:          "icd10_full",
		Edition:       "icd10",
		Variant:       "full",
		Input:         writeFile(t, dir, "icd10.txt", icd10Text),
		Subcategories: writeFile(t, dir, "subs.txt", "Intestinal infectious diseases (A00-A09)\n"),
		Output:        "icd10_full",
	}

	db, err := tablewriter.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	sink := &SharedSink{Writer: db, Path: "mem"}

	result := New(job, Options{Taxonomy: taxonomy, Sink: sink}).Run(context.Background())
	require.NoError(t, result.Error)
	assert.Equal(t, "mem#icd10_full", result.Output)
	assert.Equal(t, []string{"a00", "a00.0", "a01"}, codes(result.Records))
	assert.Equal(t, "infectious", result.Records[0].CommonCategory)

	stored, err := db.ReadCodeTable(context.Background(), "icd10_full")
	require.NoError(t, err)
	assert.Equal(t, result.Records, stored)
}

func TestRun_Failures(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "icd10.txt", icd10Text)
	emptyRef := writeFile(t, dir, "empty.txt", "\n  \n")

	tests := []struct {
		name   string
		job    config.CodebookConfig
		opts   Options
		target error
		msg    string
	}{
		{
			name: "missing input",
			job:  config.CodebookConfig{Name: "a", Edition: "icd9", Variant: "full", Input: filepath.Join(dir, "missing.txt")},
			opts: Options{Taxonomy: taxonomy, DryRun: true},
			msg:  "failed to read codebook",
		},
		{
			name:   "empty reference list",
			job:    config.CodebookConfig{Name: "b", Edition: "icd10", Variant: "full", Input: input, Subcategories: emptyRef},
			opts:   Options{Taxonomy: taxonomy, DryRun: true},
			target: validation.ErrEmptyReference,
		},
		{
			name:   "empty taxonomy",
			job:    config.CodebookConfig{Name: "c", Edition: "icd9", Variant: "full", Input: input},
			opts:   Options{Taxonomy: xlsxparser.NewTaxonomy(nil), DryRun: true},
			target: ErrEmptyTaxonomy,
		},
		{
			name: "no sink",
			job:  config.CodebookConfig{Name: "d", Edition: "icd9", Variant: "full", Input: input},
			opts: Options{Taxonomy: taxonomy},
			msg:  "no output configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.job, tt.opts).Run(context.Background())
			assert.False(t, result.Success)
			require.Error(t, result.Error)
			if tt.target != nil {
				assert.ErrorIs(t, result.Error, tt.target)
			}
			if tt.msg != "" {
				assert.Contains(t, result.Error.Error(), tt.msg)
			}
		})
	}
}

func TestRun_WithoutTaxonomy(t *testing.T) {
	dir := t.TempDir()
	job := config.CodebookConfig{Name: "a", Edition: "icd9", Variant: "part", Input: writeFile(t, dir, "icd9.txt", icd9Text)}

	result := New(job, Options{DryRun: true}).Run(context.Background())
	require.NoError(t, result.Error)
	assert.Equal(t, []string{"001", "002", "140"}, codes(result.Records))
	for _, rec := range result.Records {
		assert.Empty(t, rec.CommonCategory)
	}
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	job := config.CodebookConfig{Name: "a", Edition: "icd9", Variant: "full", Input: writeFile(t, dir, "icd9.txt", icd9Text)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(job, Options{Taxonomy: taxonomy, DryRun: true}).Run(ctx)
	assert.ErrorIs(t, result.Error, context.Canceled)
}
