// Package datasource defines how the pipeline reaches the staging ("bronze")
// store: listing candidate files, fetching their bytes, and writing results
// back under a destination prefix.
package datasource

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
)

// ErrListUnsupported is returned by stores that can fetch by id but cannot
// enumerate (plain HTTP endpoints).
var ErrListUnsupported = errors.New("datasource: listing not supported")

// Object is one entry returned by Store.List.
type Object struct {
	Key  string
	Size int64
}

// Store lists and fetches objects. Keys are store-relative identifiers, the
// same strings the ledger records.
type Store interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ObjectWriter stores bytes under a key.
type ObjectWriter interface {
	Put(ctx context.Context, key string, r io.Reader) error
}

// CSVObjects keeps the .csv entries of objs, skipping directory markers, and
// returns them sorted by key.
func CSVObjects(objs []Object) []Object {
	out := make([]Object, 0, len(objs))
	for _, o := range objs {
		if strings.HasSuffix(o.Key, "/") {
			continue
		}
		if !strings.EqualFold(path.Ext(o.Key), ".csv") {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// BaseName returns the last path element of key without its extension,
// e.g. "in/2024/Sales Q1.csv" -> "Sales Q1". Query strings of URL keys are
// ignored.
func BaseName(key string) string {
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	b := path.Base(strings.TrimRight(key, "/"))
	if b == "." || b == "/" {
		return ""
	}
	return strings.TrimSuffix(b, path.Ext(b))
}
