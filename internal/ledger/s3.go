package ledger

import (
	"context"
	"strings"

	"dwetl/internal/datasource/s3store"
)

// S3 keeps one zero-length marker object per id under Prefix.
type S3 struct {
	Bucket *s3store.Bucket
	Prefix string
}

func (s *S3) key(id string) string { return s.Prefix + id }

func (s *S3) Exists(ctx context.Context, id string) (bool, error) {
	return s.Bucket.Head(ctx, s.key(id))
}

func (s *S3) Put(ctx context.Context, id string) error {
	return s.Bucket.PutEmpty(ctx, s.key(id))
}

func (s *S3) List(ctx context.Context) ([]string, error) {
	objs, err := s.Bucket.List(ctx, s.Prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		if id := strings.TrimPrefix(o.Key, s.Prefix); id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *S3) Delete(ctx context.Context, id string) error {
	return s.Bucket.Delete(ctx, s.key(id))
}

func (s *S3) Close() error { return nil }
