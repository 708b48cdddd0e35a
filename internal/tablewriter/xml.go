package tablewriter

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
)

// XML output nests every table in one document:
//
//	<tables>
//	  <table name="icd9_full">
//	    <row n="1">
//	      <code>001</code>
//	      <description>cholera</description>
//	      ...
//	    </row>
//	  </table>
//	</tables>
//
// Columns become element names. Rows are numbered from 1 within each table.
const (
	xmlRootElement  = "tables"
	xmlTableElement = "table"
	xmlRowElement   = "row"
	xmlIndexAttr    = "n"
	xmlIndent       = "  "
)

type xmlWriter struct {
	path   string
	tables []Table
}

func newXMLWriter(path string) *xmlWriter {
	return &xmlWriter{path: path}
}

// Write buffers the table; Close writes the document. A table written twice
// under one name keeps its first position and its last rows.
func (w *xmlWriter) Write(ctx context.Context, t Table) error {
	if err := t.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range w.tables {
		if w.tables[i].Name == t.Name {
			w.tables[i] = t
			return nil
		}
	}
	w.tables = append(w.tables, t)
	return nil
}

func (w *xmlWriter) Close() error {
	if len(w.tables) == 0 {
		return nil
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create xml file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(xml.Header); err != nil {
		return fmt.Errorf("failed to write xml declaration: %w", err)
	}

	enc := xml.NewEncoder(f)
	enc.Indent("", xmlIndent)

	root := xml.StartElement{Name: xml.Name{Local: xmlRootElement}}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("failed to write xml: %w", err)
	}
	for _, t := range w.tables {
		if err := encodeTable(enc, t); err != nil {
			return fmt.Errorf("failed to write table %s: %w", t.Name, err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("failed to write xml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush xml file: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return err
	}
	return f.Close()
}

func encodeTable(enc *xml.Encoder, t Table) error {
	table := xml.StartElement{
		Name: xml.Name{Local: xmlTableElement},
		Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: t.Name}},
	}
	if err := enc.EncodeToken(table); err != nil {
		return err
	}

	for i, row := range t.Rows {
		start := xml.StartElement{
			Name: xml.Name{Local: xmlRowElement},
			Attr: []xml.Attr{{Name: xml.Name{Local: xmlIndexAttr}, Value: strconv.Itoa(i + 1)}},
		}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for j, value := range row {
			field := xml.StartElement{Name: xml.Name{Local: t.Columns[j]}}
			if err := enc.EncodeElement(value, field); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return err
		}
	}

	return enc.EncodeToken(table.End())
}
