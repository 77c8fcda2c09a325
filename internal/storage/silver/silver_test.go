package silver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"dwetl/internal/dataset"
	"dwetl/internal/datasource/file"
	"dwetl/internal/storage"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type failWriter struct{}

func (failWriter) Put(_ context.Context, _ string, r io.Reader) error {
	// Read a little so the encoder is mid-stream when the failure lands.
	_, _ = io.CopyN(io.Discard, r, 4)
	return errors.New("disk full")
}

func TestPublish_WritesCSVObject(t *testing.T) {
	t.Parallel()

	dir := file.NewDir(t.TempDir())
	dest, err := storage.New(context.Background(), storage.Config{Kind: "silver", Writer: dir, Log: quiet()})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if dest.Translated() {
		t.Fatal("silver must not be translated")
	}

	ds := dataset.MustNew(
		dataset.Column{Name: "id", Type: dataset.TypeInteger, Values: []any{int64(1), int64(2)}},
		dataset.Column{Name: "name", Type: dataset.TypeText, Values: []any{"a", nil}},
	)
	p, err := dest.Plan(context.Background(), storage.Target{ID: "in/people.csv", Object: "silver/people_processed.csv"}, ds)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	n, err := p.Publish(context.Background())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows=%d, want 2", n)
	}

	rc, err := dir.Open(context.Background(), "silver/people_processed.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if got, want := string(b), "id,name\n1,a\n2,\n"; got != want {
		t.Fatalf("object=%q, want %q", got, want)
	}
}

func TestPublish_WriterError(t *testing.T) {
	t.Parallel()

	d := New(failWriter{}, quiet(), "")
	ds := dataset.MustNew(dataset.Column{Name: "s", Type: dataset.TypeText, Values: []any{strings.Repeat("x", 1<<16)}})
	p, _ := d.Plan(context.Background(), storage.Target{Object: "k.csv"}, ds)
	if _, err := p.Publish(context.Background()); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err=%v, want disk full", err)
	}
}

func TestPlan_RequiresObjectKey(t *testing.T) {
	t.Parallel()

	d := New(failWriter{}, quiet(), "")
	ds := dataset.MustNew(dataset.Column{Name: "s", Type: dataset.TypeText, Values: []any{"x"}})
	if _, err := d.Plan(context.Background(), storage.Target{Table: "t"}, ds); err == nil {
		t.Fatal("Plan succeeded without object key")
	}
	if _, err := storage.New(context.Background(), storage.Config{Kind: "silver"}); err == nil {
		t.Fatal("storage.New succeeded without writer")
	}
}
