package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

const sampleConfig = `
output_dir: ./out
output_format: XLSX
categorisation_file: ./data/categorisation.xlsx
codebooks:
  - name: icd9_full
    edition: ICD9
    input: ./data/icd9.txt
  - name: icd9_part
    edition: icd9
    variant: part
    input: ./data/icd9.txt
  - name: icd10_full
    edition: icd10
    input: ./data/icd10.txt
    subcategories: ./data/icd10_subcategories.txt
    output: icd10
equivalence:
  enabled: true
  icd9_codebook: icd9_full
  icd10_codebook: icd10_full
`

func TestLoadMainConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./out", cfg.OutputDir)
	assert.Equal(t, tablewriter.FormatXLSX, cfg.Format())
	assert.Equal(t, filepath.Join("./out", "icd.db"), cfg.SQLitePath)
	assert.Equal(t, "{name}", cfg.OutputNameFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "icd9_icd10_equivalence", cfg.Equivalence.Output)

	require.Len(t, cfg.Codebooks, 3)
	assert.Equal(t, types.EditionICD9, cfg.Codebooks[0].EditionValue())
	assert.Equal(t, types.VariantFull, cfg.Codebooks[0].VariantValue())
	assert.Equal(t, "icd9_full", cfg.Codebooks[0].Output)
	assert.Equal(t, types.VariantPart, cfg.Codebooks[1].VariantValue())
	assert.Equal(t, "icd10", cfg.Codebooks[2].Output)

	cb, ok := cfg.Codebook("icd10_full")
	require.True(t, ok)
	assert.Equal(t, types.EditionICD10, cb.EditionValue())

	_, ok = cfg.Codebook("missing")
	assert.False(t, ok)
}

func TestLoadMainConfig_MissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "bad yaml",
			yaml:    "codebooks: [",
			wantMsg: "failed to parse config file",
		},
		{
			name:    "unknown format",
			yaml:    "output_format: json",
			wantMsg: "unknown output format",
		},
		{
			name:    "negative workers",
			yaml:    "workers: -1",
			wantMsg: "workers must be at least 1",
		},
		{
			name:    "missing categorisation",
			yaml:    "codebooks:\n  - {name: a, edition: icd9, input: a.txt}\n",
			wantMsg: "categorisation_file is required",
		},
		{
			name:    "icd10 without reference list",
			yaml:    "categorisation_file: c.xlsx\ncodebooks:\n  - {name: a, edition: icd10, input: a.txt}\n",
			wantMsg: "subcategories is required for icd10",
		},
		{
			name:    "unknown edition",
			yaml:    "categorisation_file: c.xlsx\ncodebooks:\n  - {name: a, edition: icd11, input: a.txt}\n",
			wantMsg: "unknown edition",
		},
		{
			name:    "duplicate names",
			yaml:    "categorisation_file: c.xlsx\ncodebooks:\n  - {name: a, edition: icd9, input: a.txt}\n  - {name: a, edition: icd9, input: a.txt, output: b}\n",
			wantMsg: "duplicate name",
		},
		{
			name:    "shared output",
			yaml:    "categorisation_file: c.xlsx\ncodebooks:\n  - {name: a, edition: icd9, input: a.txt, output: t}\n  - {name: b, edition: icd9, input: a.txt, output: t}\n",
			wantMsg: `output "t" already used by a`,
		},
		{
			name:    "equivalence edition mismatch",
			yaml:    "categorisation_file: c.xlsx\ncodebooks:\n  - {name: a, edition: icd9, input: a.txt}\nequivalence:\n  enabled: true\n  icd9_codebook: a\n  icd10_codebook: a\n",
			wantMsg: `icd10_codebook "a" is icd9, want icd10`,
		},
		{
			name:    "equivalence unknown job",
			yaml:    "equivalence:\n  enabled: true\n  icd9_codebook: x\n",
			wantMsg: `icd9_codebook "x" is not a configured codebook`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMainConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseMainConfig_Empty(t *testing.T) {
	cfg, err := ParseMainConfig([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, tablewriter.FormatCSV, cfg.Format())
	assert.Empty(t, cfg.Codebooks)
}
