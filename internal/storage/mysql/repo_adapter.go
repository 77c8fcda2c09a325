package mysql

import (
	"context"
	"time"

	"dwetl/internal/dataset"
	"dwetl/internal/storage"
	myddl "dwetl/internal/storage/mysql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = func(ctx context.Context, dsn string) (storage.Repository, error) {
	return NewRepository(ctx, dsn)
}

// convert sends TIME values as text and intervals as nanoseconds for the
// BIGINT column.
func convert(t dataset.ColumnType, v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		if t == dataset.TypeTime {
			return dataset.FormatValue(t, x), nil
		}
		return x, nil
	case time.Duration:
		return int64(x), nil
	}
	return v, nil
}

// init registers the "mysql" backend with the factory.
func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Destination, error) {
		repo, err := newRepository(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return storage.NewTable("mysql", myddl.Dialect, repo, convert, cfg), nil
	})
}
