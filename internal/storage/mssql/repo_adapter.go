package mssql

import (
	"context"
	"time"

	"dwetl/internal/dataset"
	"dwetl/internal/storage"
	msddl "dwetl/internal/storage/mssql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = func(ctx context.Context, dsn string) (storage.Repository, error) {
	return NewRepository(ctx, dsn)
}

// convert stores intervals in the BIGINT column as nanoseconds. Temporal,
// decimal and binary values are encoded by the bulk copy itself.
func convert(_ dataset.ColumnType, v any) (any, error) {
	if d, ok := v.(time.Duration); ok {
		return int64(d), nil
	}
	return v, nil
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Destination, error) {
		repo, err := newRepository(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return storage.NewTable("mssql", msddl.Dialect, repo, convert, cfg), nil
	})
}
