package builtin

import (
	"log/slog"
	"strings"
	"time"

	"dwetl/internal/dataset"
	"dwetl/internal/transformer"
)

// DropBlankColumns removes columns in which every value is null or an empty
// (whitespace only) string.
type DropBlankColumns struct {
	Log *slog.Logger
}

func (DropBlankColumns) Name() string { return "drop_blank_columns" }

func (d DropBlankColumns) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	return transformer.EachColumn(ds, d.Log, d.Name(), func(c dataset.Column) (dataset.Column, bool, error) {
		for _, v := range c.Values {
			if !isBlank(v) {
				return c, true, nil
			}
		}
		return c, false, nil
	})
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// DefaultMinNonNull is the row threshold used by structural cleanup.
const DefaultMinNonNull = 2

// DropSparseRows removes rows holding fewer than MinNonNull non-null
// values.
type DropSparseRows struct {
	MinNonNull int
}

func (DropSparseRows) Name() string { return "drop_sparse_rows" }

func (d DropSparseRows) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	cols := ds.Columns()
	keep := make([]int, 0, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		n := 0
		for _, c := range cols {
			if c.Values[i] != nil {
				n++
			}
		}
		if n >= d.MinNonNull {
			keep = append(keep, i)
		}
	}
	if len(keep) == ds.NumRows() {
		return ds, nil
	}
	return ds.SelectRows(keep), nil
}

// Column names appended by Stamp.
const (
	ExtractDateColumn = "extract_date"
	UniqueIDColumn    = "unique_id"
)

// Stamp appends an extract_date column (the run date, identical for every
// row) and a unique_id column numbering rows from 0. If the dataset already
// carries a column with either name, the new column is suffixed.
type Stamp struct {
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

func (Stamp) Name() string { return "stamp" }

func (s Stamp) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	y, m, d := now().UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	n := ds.NumRows()
	dates := make([]any, n)
	ids := make([]any, n)
	for i := 0; i < n; i++ {
		dates[i] = day
		ids[i] = int64(i)
	}

	cols := ds.Columns()
	names := append(ds.Names(), ExtractDateColumn, UniqueIDColumn)
	names = dataset.UniqueNames(names)
	cols = append(cols,
		dataset.Column{Name: names[len(names)-2], Type: dataset.TypeDate, Values: dates},
		dataset.Column{Name: names[len(names)-1], Type: dataset.TypeInteger, Values: ids},
	)
	return dataset.New(cols...)
}
