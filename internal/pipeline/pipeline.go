// Package pipeline runs source files through the ingestion state machine:
//
//	DISCOVERED → (SKIPPED) → LOADED → TRANSFORMED → TRANSLATED → BATCHED
//	           → PUBLISHED → MARKED_PROCESSED
//
// Any failure ends the file in FAILED with the ledger unchanged. Files are
// processed one at a time and a failed file never stops the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dwetl/internal/dataset"
	"dwetl/internal/datasource"
	"dwetl/internal/ledger"
	"dwetl/internal/metrics"
	csvparser "dwetl/internal/parser/csv"
	"dwetl/internal/storage"
	"dwetl/internal/transformer"
	"dwetl/internal/transformer/builtin"
)

// State is a step of the per-file state machine.
type State string

const (
	StateDiscovered      State = "DISCOVERED"
	StateSkipped         State = "SKIPPED"
	StateLoaded          State = "LOADED"
	StateTransformed     State = "TRANSFORMED"
	StateTranslated      State = "TRANSLATED"
	StateBatched         State = "BATCHED"
	StatePublished       State = "PUBLISHED"
	StateMarkedProcessed State = "MARKED_PROCESSED"
	StateFailed          State = "FAILED"
)

// StageError reports the state a file failed to reach.
type StageError struct {
	ID    string
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %s: %v", e.ID, e.State, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrNoColumns is returned for a source file without a single usable column.
var ErrNoColumns = errors.New("pipeline: file has no columns")

// Options configures a Runner.
type Options struct {
	// Job labels metrics.
	Job string
	// RunID identifies the run in logs; a random one is generated when empty.
	RunID string

	// CSV parsing.
	Comma    rune
	NoHeader bool
	Types    map[string]dataset.ColumnType

	// Chain is applied to every loaded dataset. A nil chain leaves data as
	// loaded.
	Chain transformer.Chain

	// Namespace prefixes derived table names, e.g. the Dremio source.
	Namespace string
	// ObjectPrefix prefixes silver object keys.
	ObjectPrefix string

	Log *slog.Logger
}

// Runner composes source, ledger, transform chain and destination.
type Runner struct {
	src  datasource.Store
	led  *ledger.Ledger
	dest storage.Destination
	opt  Options
	log  *slog.Logger
}

// New returns a Runner. The caller keeps ownership of src, led and dest.
func New(src datasource.Store, led *ledger.Ledger, dest storage.Destination, opt Options) *Runner {
	if opt.RunID == "" {
		opt.RunID = uuid.NewString()
	}
	if opt.Log == nil {
		opt.Log = slog.Default()
	}
	return &Runner{
		src:  src,
		led:  led,
		dest: dest,
		opt:  opt,
		log:  opt.Log.With("run_id", opt.RunID),
	}
}

// RunID returns the identifier attached to every log line of the runner.
func (r *Runner) RunID() string { return r.opt.RunID }

// Discover lists the CSV files under prefix in key order.
func (r *Runner) Discover(ctx context.Context, prefix string) ([]string, error) {
	objs, err := r.src.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("pipeline: discover %q: %w", prefix, err)
	}
	objs = datasource.CSVObjects(objs)
	ids := make([]string, len(objs))
	for i, o := range objs {
		ids[i] = o.Key
	}
	r.log.Info("pipeline: discovered files", "prefix", prefix, "files", len(ids))
	return ids, nil
}

// Run processes ids in order. File failures are recorded in the summary and
// the run continues; the returned error is non-nil only when ctx was
// cancelled, in which case the remaining files are left untouched.
func (r *Runner) Run(ctx context.Context, ids []string) (Summary, error) {
	sum := Summary{RunID: r.opt.RunID}
	start := time.Now()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			r.log.Warn("pipeline: interrupted", "remaining", len(ids)-len(sum.Results), "err", err)
			sum.Duration = time.Since(start)
			return sum, err
		}
		sum.add(r.Process(ctx, id))
	}
	sum.Duration = time.Since(start)
	return sum, nil
}

// Process runs a single file through the state machine.
func (r *Runner) Process(ctx context.Context, id string) Result {
	res := Result{ID: id}
	log := r.log.With("id", id)
	start := time.Now()

	fail := func(state State, err error) Result {
		res.Err = &StageError{ID: id, State: state, Err: err}
		res.advance(StateFailed)
		res.Duration = time.Since(start)
		metrics.RecordFile(r.opt.Job, "failed")
		log.Error("pipeline: file failed", "state", string(state), "err", err)
		return res
	}

	res.advance(StateDiscovered)
	log.Debug("pipeline: discovered")

	skip, err := r.led.ShouldSkip(ctx, id)
	if err != nil {
		return fail(StateDiscovered, err)
	}
	if skip {
		res.advance(StateSkipped)
		res.Duration = time.Since(start)
		metrics.RecordFile(r.opt.Job, "skipped")
		log.Info("pipeline: already processed, skipping")
		return res
	}

	// LOADED
	ds, err := r.step("load", func() (*dataset.Dataset, error) { return r.load(ctx, id, log) })
	if err != nil {
		return fail(StateLoaded, err)
	}
	res.Loaded = ds.NumRows()
	res.advance(StateLoaded)
	metrics.RecordRow(r.opt.Job, "loaded", int64(res.Loaded))
	log.Debug("pipeline: loaded", "rows", res.Loaded, "columns", ds.NumCols())

	// TRANSFORMED
	ds, err = r.step("transform", func() (*dataset.Dataset, error) {
		if len(r.opt.Chain) == 0 {
			return ds, nil
		}
		return r.opt.Chain.Apply(ds)
	})
	if err != nil {
		return fail(StateTransformed, err)
	}
	if ds.NumCols() == 0 {
		return fail(StateTransformed, ErrNoColumns)
	}
	res.advance(StateTransformed)
	if dropped := res.Loaded - ds.NumRows(); dropped > 0 {
		metrics.RecordRow(r.opt.Job, "dropped", int64(dropped))
	}
	log.Debug("pipeline: transformed", "rows", ds.NumRows(), "columns", ds.NumCols(), "steps", r.opt.Chain.Names())

	// TRANSLATED, BATCHED
	tg, err := r.target(id)
	if err != nil {
		return fail(StateTranslated, err)
	}
	planStart := time.Now()
	plan, err := r.dest.Plan(ctx, tg, ds)
	metrics.RecordStep(r.opt.Job, "plan", err, time.Since(planStart))
	if err != nil {
		var pe *storage.PlanError
		if errors.As(err, &pe) && pe.Stage == storage.StageBatch {
			return fail(StateBatched, err)
		}
		return fail(StateTranslated, err)
	}
	if r.dest.Translated() {
		res.advance(StateTranslated)
		res.advance(StateBatched)
	}
	info := plan.Info()
	res.Target = info.Target
	res.Batches = info.Batches
	res.Bytes = info.Bytes
	log.Info("pipeline: planned", "target", info.Target, "rows", info.Rows, "batches", info.Batches)

	// PUBLISHED
	pubStart := time.Now()
	n, err := plan.Publish(ctx)
	metrics.RecordStep(r.opt.Job, "publish", err, time.Since(pubStart))
	if err != nil {
		return fail(StatePublished, err)
	}
	res.Published = n
	res.advance(StatePublished)
	metrics.RecordRow(r.opt.Job, "published", n)

	// MARKED_PROCESSED
	if err := r.led.MarkProcessed(ctx, id); err != nil {
		// The data is out; a rerun publishes it again.
		return fail(StateMarkedProcessed, err)
	}
	res.advance(StateMarkedProcessed)
	res.Duration = time.Since(start)
	metrics.RecordFile(r.opt.Job, "processed")
	log.Info("pipeline: file processed", "target", res.Target, "rows", n, "took", res.Duration.Truncate(time.Millisecond))
	return res
}

// step times fn and records it as a pipeline step.
func (r *Runner) step(name string, fn func() (*dataset.Dataset, error)) (*dataset.Dataset, error) {
	start := time.Now()
	ds, err := fn()
	metrics.RecordStep(r.opt.Job, name, err, time.Since(start))
	return ds, err
}

func (r *Runner) load(ctx context.Context, id string, log *slog.Logger) (*dataset.Dataset, error) {
	rc, err := r.src.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ds, st, err := csvparser.ReadDataset(rc, csvparser.Options{
		Comma:    r.opt.Comma,
		NoHeader: r.opt.NoHeader,
		Types:    r.opt.Types,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	if st.SkippedRows > 0 || len(st.DroppedColumns) > 0 {
		log.Warn("pipeline: load dropped data", "skipped_rows", st.SkippedRows, "dropped_columns", st.DroppedColumns)
	}
	if ds.NumCols() == 0 {
		return nil, ErrNoColumns
	}
	return ds, nil
}

// target derives the table and object names of id.
func (r *Runner) target(id string) (storage.Target, error) {
	base := datasource.BaseName(id)
	table := builtin.NormalizeName(base)
	if table == "" {
		return storage.Target{}, fmt.Errorf("pipeline: cannot derive a table name from %q", id)
	}
	if r.opt.Namespace != "" {
		table = r.opt.Namespace + "." + table
	}
	return storage.Target{
		ID:     id,
		Table:  table,
		Object: r.opt.ObjectPrefix + base + "_processed.csv",
	}, nil
}
