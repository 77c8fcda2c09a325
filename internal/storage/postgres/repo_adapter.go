package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"dwetl/internal/dataset"
	"dwetl/internal/storage"
	pgddl "dwetl/internal/storage/postgres/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = func(ctx context.Context, dsn string) (storage.Repository, error) {
	return NewRepository(ctx, dsn)
}

// convert hands pgx the types its codecs expect for the columns declared in
// the Postgres type table. Everything else passes through unchanged.
func convert(t dataset.ColumnType, v any) (any, error) {
	switch t {
	case dataset.TypeDecimal:
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		var n pgtype.Numeric
		if err := n.Scan(s); err != nil {
			return nil, fmt.Errorf("decimal %q: %w", s, err)
		}
		return n, nil
	case dataset.TypeTime:
		tv, ok := v.(time.Time)
		if !ok {
			return v, nil
		}
		since := tv.Sub(time.Date(tv.Year(), tv.Month(), tv.Day(), 0, 0, 0, 0, tv.Location()))
		return pgtype.Time{Microseconds: since.Microseconds(), Valid: true}, nil
	case dataset.TypeInterval:
		d, ok := v.(time.Duration)
		if !ok {
			return v, nil
		}
		return pgtype.Interval{Microseconds: d.Microseconds(), Valid: true}, nil
	}
	return v, nil
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Destination, error) {
		repo, err := newRepository(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return storage.NewTable("postgres", pgddl.Dialect, repo, convert, cfg), nil
	})
}
