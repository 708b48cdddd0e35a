package converter

import (
	"context"
	"fmt"
	"sync"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/tablewriter"
	"github.com/ginjaninja78/icd-codebook-mapper/pkg/utils"
)

// Sink stores finished tables. WriteTable returns where the table went.
// Implementations must be safe for concurrent use.
type Sink interface {
	WriteTable(ctx context.Context, t tablewriter.Table) (string, error)
}

// FileSink writes every table to its own csv or xlsx file.
type FileSink struct {
	Files      *utils.FileManager
	Format     tablewriter.Format
	NameFormat string
}

func (s *FileSink) WriteTable(ctx context.Context, t tablewriter.Table) (string, error) {
	path := s.Files.OutputPath(s.NameFormat, t.Name, s.Format.Extension())

	w, err := tablewriter.Open(s.Format, path)
	if err != nil {
		return "", err
	}
	if err := w.Write(ctx, t); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// SharedSink writes every table through one writer, such as a single SQLite
// database or workbook. The caller closes the writer.
type SharedSink struct {
	Writer tablewriter.Writer
	Path   string

	mu sync.Mutex
}

func (s *SharedSink) WriteTable(ctx context.Context, t tablewriter.Table) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Writer.Write(ctx, t); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#%s", s.Path, t.Name), nil
}
