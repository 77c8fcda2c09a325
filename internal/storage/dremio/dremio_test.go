package dremio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dwetl/internal/batch"
	"dwetl/internal/dataset"
	rest "dwetl/internal/dremio"
	"dwetl/internal/storage"
)

// fakeExec records statements and fails the call numbered failAt (1-based).
type fakeExec struct {
	stmts  []string
	failAt int
}

func (f *fakeExec) Execute(_ context.Context, stmt string) (string, error) {
	f.stmts = append(f.stmts, stmt)
	if len(f.stmts) == f.failAt {
		return "", &rest.RemoteError{Op: "sql", Status: 400, Body: "bad"}
	}
	return "job", nil
}

func people() *dataset.Dataset {
	return dataset.MustNew(
		dataset.Column{Name: "id", Type: dataset.TypeInteger, Values: []any{int64(1), int64(2)}},
		dataset.Column{Name: "name", Type: dataset.TypeText, Values: []any{"a", nil}},
	)
}

/*
Unit tests
*/

func TestPlanAndPublish(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	d := New(exec, storage.Config{Pace: -1, Log: quiet()})
	ctx := context.Background()

	p, err := d.Plan(ctx, storage.Target{Table: "lake.people"}, people())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	info := p.Info()
	if info.Rows != 2 || info.Batches != 2 || info.Target != "lake.people" || info.Bytes <= 0 {
		t.Fatalf("Info=%+v", info)
	}
	if len(exec.stmts) != 0 {
		t.Fatalf("Plan sent %d statements", len(exec.stmts))
	}

	n, err := p.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows=%d, want 2", n)
	}
	want := []string{
		"CREATE TABLE IF NOT EXISTS \"lake\".\"people\" (\n  \"id\" BIGINT,\n  \"name\" VARCHAR\n)",
		`INSERT INTO "lake"."people" ("id", "name") VALUES (1, 'a'), (2, NULL)`,
	}
	if diff := cmp.Diff(want, exec.stmts); diff != "" {
		t.Fatalf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestPublish_StopsAtFirstFailure checks that nothing after a rejected batch
// is sent.
func TestPublish_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{failAt: 2}
	d := New(exec, storage.Config{Pace: -1, Log: quiet(), Ceiling: 50})

	p, err := d.Plan(context.Background(), storage.Target{Table: "t"}, people())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := p.Info().Batches; got != 3 {
		t.Fatalf("batches=%d, want 3 with a small ceiling", got)
	}
	n, err := p.Publish(context.Background())
	var re *rest.RemoteError
	if !errors.As(err, &re) || re.Status != 400 {
		t.Fatalf("err=%v, want RemoteError 400", err)
	}
	if n != 0 {
		t.Fatalf("rows=%d, want 0", n)
	}
	if len(exec.stmts) != 2 {
		t.Fatalf("sent %d statements, want 2", len(exec.stmts))
	}
}

func TestPlan_BatchStageError(t *testing.T) {
	t.Parallel()

	d := New(&fakeExec{}, storage.Config{Pace: -1, Log: quiet()})
	bad := dataset.MustNew(dataset.Column{Name: "n", Type: dataset.TypeInteger, Values: []any{1}})

	_, err := d.Plan(context.Background(), storage.Target{Table: "t"}, bad)
	var pe *storage.PlanError
	if !errors.As(err, &pe) || pe.Stage != storage.StageBatch {
		t.Fatalf("err=%v, want batch stage PlanError", err)
	}
}

func TestPlan_BatchesRespectCeiling(t *testing.T) {
	t.Parallel()

	vals := make([]any, 500)
	for i := range vals {
		vals[i] = strings.Repeat("x", 100)
	}
	ds := dataset.MustNew(dataset.Column{Name: "s", Type: dataset.TypeText, Values: vals})
	d := New(&fakeExec{}, storage.Config{Pace: -1, Log: quiet(), Ceiling: 4096})

	p, err := d.Plan(context.Background(), storage.Target{Table: "t"}, ds)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	bp := p.(interface{ Batches() []batch.Batch })
	rows := 0
	for i, b := range bp.Batches() {
		if b.Size() > 4096 {
			t.Fatalf("batch %d size %d over ceiling", i, b.Size())
		}
		rows += b.Rows()
	}
	if rows != 500 {
		t.Fatalf("rows=%d, want 500", rows)
	}
}

// TestRegistration_UsesExecutorHook verifies the registered factory passes
// the Dremio settings to the executor hook.
func TestRegistration_UsesExecutorHook(t *testing.T) {
	orig := newExecutor
	defer func() { newExecutor = orig }()

	var got rest.Config
	newExecutor = func(cfg rest.Config) (rest.Executor, error) {
		got = cfg
		return &fakeExec{}, nil
	}

	dest, err := storage.New(context.Background(), storage.Config{
		Kind:   "dremio",
		Dremio: rest.Config{URL: "http://dremio:9047", Username: "etl"},
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if dest.Kind() != "dremio" || !dest.Translated() {
		t.Fatalf("kind=%s translated=%v", dest.Kind(), dest.Translated())
	}
	if got.URL != "http://dremio:9047" || got.Username != "etl" {
		t.Fatalf("executor config=%+v", got)
	}

	newExecutor = func(rest.Config) (rest.Executor, error) { return nil, errors.New("bad url") }
	if _, err := storage.New(context.Background(), storage.Config{Kind: "dremio"}); err == nil {
		t.Fatal("storage.New succeeded with failing executor")
	}
}
