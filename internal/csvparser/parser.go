// =============================================================================
// ICD Codebook Mapper - CSV Table Reader
// =============================================================================
//
// This module reads code tables that an earlier run wrote as CSV, so the
// equivalence step can be run on its own. It handles:
//   - a single header row, matched by name and case-insensitively
//   - comma, tab or pipe delimiters
//   - short rows (missing trailing cells read as empty)
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents a parsed CSV file.
type CSVData struct {
	// Headers are the trimmed, lowercased header cells.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// SourceFile is the path to the source CSV file.
	SourceFile string

	// RowCount is the number of data rows (excluding the header).
	RowCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: the CSV file
//   - delimiter: ",", "tab", "\t", "|" or "pipe"; empty means comma
//
// RETURNS:
//   - the parsed data
//   - an error if the file cannot be read or has no header row
func Parse(filePath, delimiter string) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := ParseReader(bufio.NewReader(file), delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseReader parses CSV from r.
func ParseReader(r io.Reader, delimiter string) (*CSVData, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter(delimiter)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers := cleanHeaders(allRows[0])
	rows := make([]map[string]string, 0, len(allRows)-1)
	for _, raw := range allRows[1:] {
		if isRowEmpty(raw) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(raw) {
				row[h] = raw[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &CSVData{Headers: headers, Rows: rows, RowCount: len(rows)}, nil
}

// ReadCodeTable reads a code table written by the mapper. The "code" column
// is required; values are trimmed and lowercased.
func ReadCodeTable(filePath, delimiter string) ([]types.CodeRecord, error) {
	data, err := Parse(filePath, delimiter)
	if err != nil {
		return nil, err
	}
	if !data.HasColumn("code") {
		return nil, fmt.Errorf("%s: missing column %q", filePath, "code")
	}

	records := make([]types.CodeRecord, 0, data.RowCount)
	for _, row := range data.Rows {
		records = append(records, types.CodeRecord{
			Code:           clean(row["code"]),
			Description:    clean(row["description"]),
			Subcategory:    clean(row["subcategory"]),
			Category:       clean(row["category"]),
			CommonCategory: clean(row["commoncat"]),
		})
	}
	return records, nil
}

// HasColumn reports whether the header row contains name.
func (d *CSVData) HasColumn(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Delimiter maps a configured delimiter name to the rune used by
// encoding/csv.
func Delimiter(name string) rune {
	switch name {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	}
	return ','
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cleanHeaders trims and lowercases header cells. Empty headers get a
// positional name.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
		if header == "" {
			header = fmt.Sprintf("column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
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
