// =============================================================================
// ICD Codebook Mapper - Table Writer Module
// =============================================================================
//
// This module writes the flat record tables produced by the pipeline.
//
// SUPPORTED FORMATS:
//   1. csv:    one file, one table
//   2. xlsx:   one workbook, one sheet per table
//   3. sqlite: one database, one SQL table per table (TEXT columns)
//   4. xml:    one document, one <table> element per table
//
// Every table is replaced, not appended to, when it is written again.
//
// =============================================================================

package tablewriter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

// Format names an output format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
	FormatXML    Format = "xml"
)

// ErrTableLimit is returned when a second table is written to a CSV writer.
var ErrTableLimit = errors.New("csv output holds a single table")

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatSQLite, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want csv, xlsx, sqlite or xml)", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	case ".xml":
		return FormatXML, nil
	default:
		return "", fmt.Errorf("cannot infer output format from %q", path)
	}
}

// Extension returns the file extension for the format, with the dot.
func (f Format) Extension() string {
	switch f {
	case FormatXLSX:
		return ".xlsx"
	case FormatSQLite:
		return ".db"
	case FormatXML:
		return ".xml"
	default:
		return ".csv"
	}
}

// =============================================================================
// TABLES
// =============================================================================

// Table is a named, ordered set of string rows.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// CodeTable builds a table from code records in CodeColumns order.
func CodeTable(name string, records []types.CodeRecord) Table {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}
	return Table{Name: name, Columns: types.CodeColumns, Rows: rows}
}

// EquivalenceTable builds a table from equivalence records.
func EquivalenceTable(name string, records []types.EquivalenceRecord) Table {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}
	return Table{Name: name, Columns: types.EquivalenceColumns, Rows: rows}
}

func (t Table) validate() error {
	if t.Name == "" {
		return errors.New("table has no name")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Name)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("table %s row %d has %d values, want %d", t.Name, i+1, len(row), len(t.Columns))
		}
	}
	return nil
}

// =============================================================================
// WRITER
// =============================================================================

// Writer writes tables to one output target. Close must be called to
// release the target; for xlsx and xml it is also what saves the file.
type Writer interface {
	Write(ctx context.Context, t Table) error
	Close() error
}

// Open returns a writer for path in the given format.
func Open(format Format, path string) (Writer, error) {
	switch format {
	case FormatCSV:
		return newCSVWriter(path), nil
	case FormatXLSX:
		return newXLSXWriter(path), nil
	case FormatSQLite:
		return OpenSQLite(path)
	case FormatXML:
		return newXMLWriter(path), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
