package tablewriter

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/icd-codebook-mapper/internal/types"
)

const memoryPath = ":memory:"

// SQLiteWriter writes each table to its own SQL table. It is safe for
// concurrent use; writes are serialized on a single connection.
type SQLiteWriter struct {
	db *sqlx.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" opens a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteWriter, error) {
	dsn := path
	if path != memoryPath {
		dsn += "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write replaces the SQL table named t.Name in one transaction.
func (w *SQLiteWriter) Write(ctx context.Context, t Table) error {
	if err := t.validate(); err != nil {
		return err
	}

	table := quoteIdent(t.Name)
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write %s: %w", t.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop table %s: %w", t.Name, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s TEXT NOT NULL)", table, strings.Join(cols, " TEXT NOT NULL, "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", t.Name, err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(t.Columns))
	for i, row := range t.Rows {
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i+1, t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", t.Name, err)
	}
	return nil
}

// codeRow is the scan target for a code table.
type codeRow struct {
	Code           string `db:"code"`
	Description    string `db:"description"`
	Subcategory    string `db:"subcategory"`
	Category       string `db:"category"`
	CommonCategory string `db:"commoncat"`
}

// ReadCodeTable reads a code table written by Write, in insertion order.
func (w *SQLiteWriter) ReadCodeTable(ctx context.Context, name string) ([]types.CodeRecord, error) {
	var rows []codeRow
	query := fmt.Sprintf("SELECT code, description, subcategory, category, commoncat FROM %s ORDER BY rowid", quoteIdent(name))
	if err := w.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("read table %s: %w", name, err)
	}

	records := make([]types.CodeRecord, len(rows))
	for i, r := range rows {
		records[i] = types.CodeRecord{
			Code:           r.Code,
			Description:    r.Description,
			Subcategory:    r.Subcategory,
			Category:       r.Category,
			CommonCategory: r.CommonCategory,
		}
	}
	return records, nil
}

// Tables lists the tables in the database, sorted by name.
func (w *SQLiteWriter) Tables(ctx context.Context) ([]string, error) {
	var names []string
	if err := w.db.SelectContext(ctx, &names, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
