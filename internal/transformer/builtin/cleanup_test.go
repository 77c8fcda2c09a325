package builtin

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"dwetl/internal/dataset"
	"dwetl/internal/transformer"

	"github.com/google/go-cmp/cmp"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 17, 13, 45, 0, 0, time.UTC) }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// TestStructuralCleanup_Example runs the whole structural chain over the
// canonical two-duplicates-one-sparse input.
func TestStructuralCleanup_Example(t *testing.T) {
	t.Parallel()

	ds := dataset.MustNew(
		dataset.Column{Name: "Full Name", Type: dataset.TypeText, Values: []any{"Alice", "Alice", "Bob"}},
		dataset.Column{Name: "  Score ", Type: dataset.TypeInteger, Values: []any{int64(10), int64(10), nil}},
	)
	chain, err := ForMode(transformer.ModeStructuralCleanup, Options{Now: fixedNow, Log: quiet()})
	if err != nil {
		t.Fatalf("ForMode: %v", err)
	}
	out, err := chain.Apply(ds)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	wantNames := []string{"full_name", "score", "extract_date", "unique_id"}
	if diff := cmp.Diff(wantNames, out.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]any{{"Alice", int64(10), time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), int64(0)}}
	if diff := cmp.Diff(wantRows, out.Rows()); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if c, _ := out.Lookup("extract_date"); c.Type != dataset.TypeDate {
		t.Fatalf("extract_date type=%s, want date", c.Type)
	}
	if ds.NumRows() != 3 || ds.Names()[0] != "Full Name" {
		t.Fatalf("input dataset modified")
	}
}

func TestDropBlankColumns(t *testing.T) {
	t.Parallel()

	ds := dataset.MustNew(
		dataset.Column{Name: "nulls", Type: dataset.TypeText, Values: []any{nil, nil}},
		dataset.Column{Name: "blanks", Type: dataset.TypeText, Values: []any{"", "  "}},
		dataset.Column{Name: "some", Type: dataset.TypeText, Values: []any{"", "x"}},
	)
	out, err := DropBlankColumns{Log: quiet()}.Apply(ds)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff([]string{"some"}, out.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDropSparseRows_Threshold(t *testing.T) {
	t.Parallel()

	ds := dataset.MustNew(
		dataset.Column{Name: "a", Type: dataset.TypeInteger, Values: []any{int64(1), nil, int64(3)}},
		dataset.Column{Name: "b", Type: dataset.TypeInteger, Values: []any{int64(1), int64(2), nil}},
		dataset.Column{Name: "c", Type: dataset.TypeInteger, Values: []any{int64(1), nil, int64(3)}},
	)
	for _, tt := range []struct {
		min  int
		want int
	}{{1, 3}, {2, 2}, {3, 1}, {4, 0}} {
		out, err := DropSparseRows{MinNonNull: tt.min}.Apply(ds)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if out.NumRows() != tt.want {
			t.Errorf("min=%d rows=%d, want %d", tt.min, out.NumRows(), tt.want)
		}
	}
}

func TestDedupRows_KeepsFirstAndOrder(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ds := dataset.MustNew(
		dataset.Column{Name: "k", Type: dataset.TypeText, Values: []any{"b", "a", "b", "a", nil, nil}},
		dataset.Column{Name: "d", Type: dataset.TypeDate, Values: []any{day, day, day, day.Add(24 * time.Hour), nil, nil}},
		dataset.Column{Name: "id", Type: dataset.TypeInteger, Values: []any{int64(1), int64(2), int64(1), int64(2), nil, nil}},
	)
	out, err := DedupRows{}.Apply(ds)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := [][]any{
		{"b", day, int64(1)},
		{"a", day, int64(2)},
		{"a", day.Add(24 * time.Hour), int64(2)},
		{nil, nil, nil},
	}
	if diff := cmp.Diff(want, out.Rows()); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

// TestStructuralCleanup_NeverAddsRows checks row-count conservation over a
// few shapes of input.
func TestStructuralCleanup_NeverAddsRows(t *testing.T) {
	t.Parallel()

	chain, _ := ForMode(transformer.ModeStructuralCleanup, Options{Now: fixedNow, Log: quiet()})
	inputs := []*dataset.Dataset{
		dataset.MustNew(),
		dataset.MustNew(dataset.Column{Name: "x", Type: dataset.TypeText, Values: []any{nil, nil}}),
		dataset.MustNew(
			dataset.Column{Name: "x", Type: dataset.TypeText, Values: []any{"a", "a", "b"}},
			dataset.Column{Name: "y", Type: dataset.TypeReal, Values: []any{1.0, 1.0, 2.0}},
		),
	}
	for i, in := range inputs {
		out, err := chain.Apply(in)
		if err != nil {
			t.Fatalf("input %d: %v", i, err)
		}
		if out.NumRows() > in.NumRows() {
			t.Errorf("input %d: rows grew from %d to %d", i, in.NumRows(), out.NumRows())
		}
	}
}
