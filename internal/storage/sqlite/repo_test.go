package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dwetl/internal/dataset"
	"dwetl/internal/storage"
)

/*
Package-level test helpers (TB-aware)
*/

func newFileRepo(tb testing.TB) (*Repository, string) {
	tb.Helper()
	dsn := filepath.Join(tb.TempDir(), "warehouse.db")
	r, err := NewRepository(context.Background(), dsn)
	if err != nil {
		tb.Fatalf("NewRepository: %v", err)
	}
	tb.Cleanup(r.Close)
	return r, dsn
}

func sample() *dataset.Dataset {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return dataset.MustNew(
		dataset.Column{Name: "id", Type: dataset.TypeInteger, Values: []any{int64(1), int64(2), int64(3)}},
		dataset.Column{Name: "name", Type: dataset.TypeText, Values: []any{"a", nil, "c"}},
		dataset.Column{Name: "day", Type: dataset.TypeDate, Values: []any{day, day, nil}},
		dataset.Column{Name: "wait", Type: dataset.TypeInterval, Values: []any{time.Second, nil, time.Minute}},
		dataset.Column{Name: "ok", Type: dataset.TypeBoolean, Values: []any{true, false, nil}},
	)
}

/*
Unit tests
*/

// TestDestination_PlanAndPublish runs a full plan against a file database and
// checks the table holds every row.
func TestDestination_PlanAndPublish(t *testing.T) {
	t.Parallel()

	check, dsn := newFileRepo(t)
	ctx := context.Background()

	dest, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn, BatchSize: 2})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer dest.Close()

	plan, err := dest.Plan(ctx, storage.Target{ID: "in/people.csv", Table: "people"}, sample())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if info := plan.Info(); info.Rows != 3 || info.Batches != 2 || info.Target != "people" {
		t.Fatalf("Info=%+v", info)
	}
	n, err := plan.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 3 {
		t.Fatalf("published %d rows, want 3", n)
	}

	// Publishing again reuses the existing table.
	if _, err := plan.Publish(ctx); err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	got, err := check.Count(ctx, "people")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if got != 6 {
		t.Fatalf("count=%d, want 6", got)
	}
}

func TestCopyFrom_StoresConvertedValues(t *testing.T) {
	t.Parallel()

	r, _ := newFileRepo(t)
	ctx := context.Background()
	if err := r.Exec(ctx, `CREATE TABLE "t" ("d" TEXT, "w" INTEGER)`); err != nil {
		t.Fatalf("Exec: %v", err)
	}

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	d, _ := convert(dataset.TypeDate, day)
	w, _ := convert(dataset.TypeInterval, 90*time.Second)
	if _, err := r.CopyFrom(ctx, "t", []string{"d", "w"}, [][]any{{d, w}}); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}

	var gotD string
	var gotW int64
	if err := r.db.QueryRowContext(ctx, `SELECT "d", "w" FROM "t"`).Scan(&gotD, &gotW); err != nil {
		t.Fatalf("select: %v", err)
	}
	if gotD != "2024-03-04" || gotW != int64(90*time.Second) {
		t.Fatalf("got (%q, %d)", gotD, gotW)
	}
}

func TestCopyFrom_RowLengthMismatchRollsBack(t *testing.T) {
	t.Parallel()

	r, _ := newFileRepo(t)
	ctx := context.Background()
	if err := r.Exec(ctx, `CREATE TABLE "t" ("a" INTEGER, "b" INTEGER)`); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	_, err := r.CopyFrom(ctx, "t", []string{"a", "b"}, [][]any{{1, 2}, {3}})
	if err == nil || !strings.Contains(err.Error(), "row 1") {
		t.Fatalf("err=%v, want row length error", err)
	}
	if n, _ := r.Count(ctx, "t"); n != 0 {
		t.Fatalf("count=%d after rollback, want 0", n)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

// TestRegistration_UsesHook verifies the registered factory goes through the
// newRepository hook and surfaces its error.
func TestRegistration_UsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	boom := errors.New("boom")
	var gotDSN string
	newRepository = func(_ context.Context, dsn string) (storage.Repository, error) {
		gotDSN = dsn
		return nil, boom
	}

	_, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "x.db"})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want boom", err)
	}
	if gotDSN != "x.db" {
		t.Fatalf("hook dsn=%q", gotDSN)
	}
}
