package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultTable holds one row per processed id in the SQL backends.
const DefaultTable = "processed_files"

// SQLite keeps ids in a table of a SQLite database.
type SQLite struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// OpenSQLite opens dsn and creates the ledger table if missing.
func OpenSQLite(ctx context.Context, dsn, table string) (*SQLite, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("ledger: sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	s, err := NewSQLite(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an open database and creates the table.
func NewSQLite(ctx context.Context, db *sql.DB, table string) (*SQLite, error) {
	if table == "" {
		table = DefaultTable
	}
	s := &SQLite{db: db, table: quoteSQL(table), now: time.Now}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, processed_at TEXT NOT NULL)`, s.table)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("ledger: sqlite: create table: %w", err)
	}
	return s, nil
}

func (s *SQLite) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, s.table), id).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("sqlite: %w", err)
	}
	return true, nil
}

func (s *SQLite) Put(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (id, processed_at) VALUES (?, ?)`, s.table),
		id, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table), id); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// quoteSQL quotes a possibly dotted table name with double quotes.
func quoteSQL(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
