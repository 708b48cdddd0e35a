package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/config"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/csvparser"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/equivalence"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

const testICD9 = `INFECTIOUS AND PARASITIC DISEASES
INTESTINAL INFECTIOUS DISEASES (001 – 009)
001 Cholera
002 Typhoid and paratyphoid fevers
NEOPLASMS
MALIGNANT NEOPLASM OF LIP (140 – 149)
140 Malignant neoplasm of lip
`

const testICD10 = `Chapter 1
Certain infectious and parasitic diseases (A00-B99)
Intestinal infectious diseases (A00-A09)
A00 Cholera
A01 Typhoid and paratyphoid fevers
`

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeTaxonomy(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"icd9cat", "icd10cat", "commoncat"},
		{"infectious and parasitic diseases", "certain infectious and parasitic diseases (a00-b99)", "infectious"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(dir, "categorisation.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func resetProcessFlags(t *testing.T, configPath string) {
	t.Helper()
	cfgFile = configPath
	dryRun = false
	onlyCodebooks = nil
	skipEquivalence = false
}

func TestSelectJobs(t *testing.T) {
	all := []config.CodebookConfig{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	jobs, err := selectJobs(all, nil)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)

	jobs, err = selectJobs(all, []string{"c", "a"})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "c", jobs[1].Name)

	_, err = selectJobs(all, []string{"a", "z", "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[y z]")
}

func TestStageCounts(t *testing.T) {
	counts := stageCounts(equivalence.Summary{ByStage: map[types.MatchStage]int{
		types.StageManual:    2,
		types.StageUnmatched: 1,
	}})
	assert.Equal(t, map[string]int{"manual": 2, "unmatched": 1}, counts)
}

func TestReadCodeTable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	records := []types.CodeRecord{{Code: "001", Description: "cholera", Category: "infectious and parasitic diseases"}}

	csvPath := filepath.Join(dir, "codes.csv")
	w, err := tablewriter.Open(tablewriter.FormatCSV, csvPath)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, tablewriter.CodeTable("codes", records)))
	require.NoError(t, w.Close())

	got, err := readCodeTable(ctx, csvPath, "")
	require.NoError(t, err)
	assert.Equal(t, records, got)

	dbPath := filepath.Join(dir, "codes.db")
	db, err := tablewriter.OpenSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Write(ctx, tablewriter.CodeTable("icd9_full", records)))
	require.NoError(t, db.Close())

	got, err = readCodeTable(ctx, dbPath, "icd9_full")
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = readCodeTable(ctx, dbPath, "")
	assert.ErrorContains(t, err, "table name is required")

	xmlPath := writeTestFile(t, dir, "codes.xml", "<tables/>")
	_, err = readCodeTable(ctx, xmlPath, "")
	assert.ErrorContains(t, err, "cannot be read back")

	_, err = readCodeTable(ctx, filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)
}

func TestRunProcess(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	cfg := `output_dir: ` + outDir + `
output_format: csv
log_level: error
categorisation_file: ` + writeTaxonomy(t, dir) + `
codebooks:
  - name: icd9_part
    edition: icd9
    variant: part
    input: ` + writeTestFile(t, dir, "icd9.txt", testICD9) + `
  - name: icd10_full
    edition: icd10
    input: ` + writeTestFile(t, dir, "icd10.txt", testICD10) + `
    subcategories: ` + writeTestFile(t, dir, "subs.txt", "Intestinal infectious diseases (A00-A09)\n") + `
equivalence:
  enabled: true
  icd9_codebook: icd9_part
  icd10_codebook: icd10_full
`
	resetProcessFlags(t, writeTestFile(t, dir, "config.yaml", cfg))

	var out bytes.Buffer
	require.NoError(t, runProcess(context.Background(), &out))

	assert.Contains(t, out.String(), "Successful:      2")
	assert.Contains(t, out.String(), "Total codes:  3")

	icd9, err := csvparser.ReadCodeTable(filepath.Join(outDir, "icd9_part.csv"), ",")
	require.NoError(t, err)
	require.Len(t, icd9, 3)
	assert.Equal(t, "infectious", icd9[0].CommonCategory)

	eq, err := csvparser.Parse(filepath.Join(outDir, "icd9_icd10_equivalence.csv"), ",")
	require.NoError(t, err)
	assert.Equal(t, 3, eq.RowCount)
	assert.True(t, eq.HasColumn("match_stage"))

	summaries, err := filepath.Glob(filepath.Join(outDir, "processing_summary_*.txt"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestRunProcess_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	cfg := `output_dir: ` + outDir + `
log_level: error
categorisation_file: ` + writeTaxonomy(t, dir) + `
codebooks:
  - name: icd9_full
    edition: icd9
    input: ` + writeTestFile(t, dir, "icd9.txt", testICD9) + `
`
	resetProcessFlags(t, writeTestFile(t, dir, "config.yaml", cfg))
	dryRun = true
	defer func() { dryRun = false }()

	var out bytes.Buffer
	require.NoError(t, runProcess(context.Background(), &out))
	assert.Contains(t, out.String(), "(dry run)")

	_, err := os.Stat(outDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunProcess_FailedJob(t *testing.T) {
	dir := t.TempDir()

	cfg := `output_dir: ` + filepath.Join(dir, "out") + `
log_level: error
categorisation_file: ` + writeTaxonomy(t, dir) + `
codebooks:
  - name: good
    edition: icd9
    input: ` + writeTestFile(t, dir, "icd9.txt", testICD9) + `
  - name: bad
    edition: icd9
    input: ` + filepath.Join(dir, "missing.txt") + `
`
	resetProcessFlags(t, writeTestFile(t, dir, "config.yaml", cfg))

	var out bytes.Buffer
	err := runProcess(context.Background(), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 codebooks failed")
	assert.True(t, strings.Contains(out.String(), "✗ bad"))
	assert.Contains(t, out.String(), "✓ good")
}
