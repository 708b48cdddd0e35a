package tablewriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

type csvWriter struct {
	path    string
	written bool
}

func newCSVWriter(path string) *csvWriter {
	return &csvWriter{path: path}
}

func (w *csvWriter) Write(ctx context.Context, t Table) error {
	if w.written {
		return fmt.Errorf("failed to write %s: %w", t.Name, ErrTableLimit)
	}
	if err := t.validate(); err != nil {
		return err
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv file: %w", err)
	}

	w.written = true
	return f.Close()
}

func (w *csvWriter) Close() error {
	return nil
}
