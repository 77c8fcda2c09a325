// Package storage holds the destination side of the pipeline: the contract a
// destination implements, the backend registry, the generic batched loader,
// and the table destination shared by the SQL database backends.
//
// Backends register a Factory for their kind at init time; importing
// dwetl/internal/storage/all enables every built-in kind.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dwetl/internal/batch"
	"dwetl/internal/dataset"
	"dwetl/internal/datasource"
	"dwetl/internal/dremio"
)

// Target names where one source file lands.
type Target struct {
	// ID is the source identifier (the ledger key).
	ID string
	// Table is the dotted destination table, e.g. "lake.sales_q1".
	Table string
	// Object is the object key for object-store destinations.
	Object string
}

// PlanInfo summarises a prepared write.
type PlanInfo struct {
	Target  string
	Rows    int
	Batches int
	// Bytes is the statement payload when known up front.
	Bytes int64
}

// Plan is a translated and batched write, ready to publish.
type Plan interface {
	Info() PlanInfo
	// Publish performs the write and returns the rows accepted.
	Publish(ctx context.Context) (int64, error)
}

// Destination turns a transformed dataset into a Plan.
type Destination interface {
	Kind() string
	// Translated reports whether plans go through the schema translator.
	Translated() bool
	Plan(ctx context.Context, t Target, ds *dataset.Dataset) (Plan, error)
	Close() error
}

// Stage names the planning step that failed.
type Stage string

const (
	StageTranslate Stage = "translate"
	StageBatch     Stage = "batch"
)

// PlanError wraps a planning failure with its stage.
type PlanError struct {
	Stage Stage
	Err   error
}

func (e *PlanError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Stage, e.Err) }
func (e *PlanError) Unwrap() error { return e.Err }

// Config carries everything a backend factory may need. Each backend reads
// only its own fields.
type Config struct {
	Kind string
	Job  string
	Log  *slog.Logger

	// Database backends.
	DSN       string
	BatchSize int

	// Dremio.
	Dremio         dremio.Config
	Ceiling        int
	Pace           time.Duration
	RowsPerCommand int

	// Silver.
	Writer datasource.ObjectWriter
}

// Defaults for Config fields left zero.
const (
	DefaultBatchSize      = 5000
	DefaultRowsPerCommand = 1
)

func (c Config) logger() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}

func (c Config) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

func (c Config) ceiling() int {
	if c.Ceiling <= 0 {
		return batch.DefaultCeiling
	}
	return c.Ceiling
}

// Factory opens a destination.
type Factory func(ctx context.Context, cfg Config) (Destination, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind, replacing any previous one.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens the destination registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Destination, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown destination %q (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered destination kinds.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
