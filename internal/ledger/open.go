package ledger

import (
	"context"
	"fmt"

	"dwetl/internal/datasource/s3store"
)

// Backend kinds accepted by Open.
const (
	KindS3       = "s3"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindMemory   = "memory"
)

// Options selects and configures a backing store.
type Options struct {
	Kind string

	// S3
	Bucket *s3store.Bucket
	Prefix string

	// SQL backends
	DSN   string
	Table string
}

// Open builds the Store described by opt.
func Open(ctx context.Context, opt Options) (Store, error) {
	switch opt.Kind {
	case KindS3:
		if opt.Bucket == nil {
			return nil, fmt.Errorf("ledger: s3 backend needs a bucket")
		}
		return &S3{Bucket: opt.Bucket, Prefix: opt.Prefix}, nil
	case KindSQLite:
		s, err := OpenSQLite(ctx, opt.DSN, opt.Table)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindPostgres:
		p, err := OpenPostgres(ctx, opt.DSN, opt.Table)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("ledger: unknown backend %q", opt.Kind)
}
