// =============================================================================
// ICD Codebook Mapper - XLSX Reader
// =============================================================================
//
// This module reads the two kinds of workbook the mapper consumes:
//   - the categorisation workbook, which links ICD-9 and ICD-10 category
//     names to a shared "common category"
//   - code tables written by an earlier run in xlsx format
//
// CATEGORISATION STRUCTURE (Expected Columns, any order, header row first):
//
//   | icd9cat                            | icd10cat                                  | commoncat  |
//   |------------------------------------|-------------------------------------------|------------|
//   | Infectious and Parasitic Diseases  | Certain infectious and parasitic diseases | Infectious |
//   | Neoplasms                          | Neoplasms                                 | Cancer     |
//
// Columns are found by header name, case-insensitively. Every value is
// trimmed and lowercased on load.
//
// CUSTOMIZATION:
//   - Change TaxonomyColumns if the workbook uses other header names
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// =============================================================================
// TAXONOMY STRUCTURE
// =============================================================================

// TaxonomyRow is one row of the categorisation workbook.
type TaxonomyRow struct {
	ICD9Category   string
	ICD10Category  string
	CommonCategory string
}

// Taxonomy is the parsed categorisation workbook.
type Taxonomy struct {
	// SourceFile is the workbook the rows came from.
	SourceFile string

	// Rows in workbook order.
	Rows []TaxonomyRow

	icd9  map[string]string
	icd10 map[string]string
}

// NewTaxonomy indexes rows for lookup. The first row for a category wins.
func NewTaxonomy(rows []TaxonomyRow) *Taxonomy {
	t := &Taxonomy{
		Rows:  rows,
		icd9:  make(map[string]string, len(rows)),
		icd10: make(map[string]string, len(rows)),
	}
	for _, r := range rows {
		if _, seen := t.icd9[r.ICD9Category]; r.ICD9Category != "" && !seen {
			t.icd9[r.ICD9Category] = r.CommonCategory
		}
		if _, seen := t.icd10[r.ICD10Category]; r.ICD10Category != "" && !seen {
			t.icd10[r.ICD10Category] = r.CommonCategory
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Taxonomy) Len() int {
	return len(t.Rows)
}

// Lookup returns the common category for a lowercased category name of the
// given edition.
func (t *Taxonomy) Lookup(edition types.Edition, category string) (string, bool) {
	if category == "" {
		return "", false
	}
	index := t.icd10
	if edition == types.EditionICD9 {
		index = t.icd9
	}
	common, ok := index[category]
	return common, ok
}

// TaxonomyColumns names the header cells of the categorisation workbook.
type TaxonomyColumns struct {
	ICD9Header   string
	ICD10Header  string
	CommonHeader string
}

// DefaultTaxonomyColumns returns the header names of icdcategorisation.xlsx.
func DefaultTaxonomyColumns() TaxonomyColumns {
	return TaxonomyColumns{
		ICD9Header:   "icd9cat",
		ICD10Header:  "icd10cat",
		CommonHeader: "commoncat",
	}
}

// =============================================================================
// MAIN PARSING FUNCTIONS
// =============================================================================

// ReadTaxonomy reads the categorisation workbook with the default headers.
//
// PARAMETERS:
//   - path: the xlsx file
//   - sheet: the sheet to read; empty means the first sheet
//
// RETURNS:
//   - the Taxonomy, possibly with zero rows
//   - an error if the file cannot be opened or a header is missing
func ReadTaxonomy(path, sheet string) (*Taxonomy, error) {
	return ReadTaxonomyWithConfig(path, sheet, DefaultTaxonomyColumns())
}

// ReadTaxonomyWithConfig reads the categorisation workbook using custom
// header names.
func ReadTaxonomyWithConfig(path, sheet string, columns TaxonomyColumns) (*Taxonomy, error) {
	rows, err := readSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("categorisation workbook %s has no header row", path)
	}

	header := headerIndex(rows[0])
	icd9Col, err := requireColumn(header, columns.ICD9Header)
	if err != nil {
		return nil, err
	}
	icd10Col, err := requireColumn(header, columns.ICD10Header)
	if err != nil {
		return nil, err
	}
	commonCol, err := requireColumn(header, columns.CommonHeader)
	if err != nil {
		return nil, err
	}

	parsed := make([]TaxonomyRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}
		parsed = append(parsed, TaxonomyRow{
			ICD9Category:   lowerCell(row, icd9Col),
			ICD10Category:  lowerCell(row, icd10Col),
			CommonCategory: lowerCell(row, commonCol),
		})
	}

	t := NewTaxonomy(parsed)
	t.SourceFile = path
	return t, nil
}

// ReadCodeTable reads a code table previously written in xlsx format. The
// "code" column is required; the other CodeColumns are optional.
func ReadCodeTable(path, sheet string) ([]types.CodeRecord, error) {
	rows, err := readSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := headerIndex(rows[0])
	codeCol, err := requireColumn(header, "code")
	if err != nil {
		return nil, err
	}
	col := func(name string) int {
		if i, ok := header[name]; ok {
			return i
		}
		return -1
	}
	descCol, subCol, catCol, commonCol := col("description"), col("subcategory"), col("category"), col("commoncat")

	records := make([]types.CodeRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}
		records = append(records, types.CodeRecord{
			Code:           lowerCell(row, codeCol),
			Description:    lowerCell(row, descCol),
			Subcategory:    lowerCell(row, subCol),
			Category:       lowerCell(row, catCol),
			CommonCategory: lowerCell(row, commonCol),
		})
	}
	return records, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// headerIndex maps lowercased header names to column positions. The first
// occurrence of a name wins.
func headerIndex(row []string) map[string]int {
	index := make(map[string]int, len(row))
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		if _, seen := index[name]; name != "" && !seen {
			index[name] = i
		}
	}
	return index
}

func requireColumn(header map[string]int, name string) (int, error) {
	i, ok := header[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("missing column %q", name)
	}
	return i, nil
}

// lowerCell returns the trimmed, lowercased cell, or "" when the row is
// short or index is negative.
func lowerCell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(row[index]))
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
