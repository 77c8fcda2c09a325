package sqlite

import (
	"context"
	"time"

	"dwetl/internal/dataset"
	"dwetl/internal/storage"
	sqliteddl "dwetl/internal/storage/sqlite/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = func(ctx context.Context, dsn string) (storage.Repository, error) {
	return NewRepository(ctx, dsn)
}

// convert maps dataset values onto the affinities in the SQLite type table:
// temporal values become ISO-8601 text and intervals become nanoseconds.
func convert(t dataset.ColumnType, v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return dataset.FormatValue(t, x), nil
	case time.Duration:
		return int64(x), nil
	default:
		return v, nil
	}
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Destination, error) {
		repo, err := newRepository(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return storage.NewTable("sqlite", sqliteddl.Dialect, repo, convert, cfg), nil
	})
}
