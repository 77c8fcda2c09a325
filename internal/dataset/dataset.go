// Package dataset defines the in-memory table that flows through the
// pipeline: an ordered set of named, typed, equal-length columns whose values
// are nullable.
//
// A Dataset is treated as immutable once built. Transformations return a new
// Dataset and may share value slices of columns they did not rewrite, so
// callers must never write into Column.Values of a Dataset they did not
// create.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Column is a single named, homogeneously typed sequence of values. A nil
// entry in Values is a null.
type Column struct {
	Name   string
	Type   ColumnType
	Values []any
}

// NonNull returns the number of non-null values in c.
func (c Column) NonNull() int {
	n := 0
	for _, v := range c.Values {
		if v != nil {
			n++
		}
	}
	return n
}

// WithValues returns a copy of c carrying vals and type t.
func (c Column) WithValues(t ColumnType, vals []any) Column {
	return Column{Name: c.Name, Type: t, Values: vals}
}

// Dataset is an ordered collection of columns.
type Dataset struct {
	cols []Column
}

// ErrInvalid is wrapped by every structural validation failure.
var ErrInvalid = errors.New("dataset: invalid")

// New builds a Dataset from cols and checks the invariants: every column has
// a non-empty unique name, a known type, and the same length as the others.
func New(cols ...Column) (*Dataset, error) {
	d := &Dataset{cols: cols}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// MustNew is New for tests and literals known to be valid.
func MustNew(cols ...Column) *Dataset {
	d, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return d
}

// Validate re-checks the Dataset invariants.
func (d *Dataset) Validate() error {
	seen := make(map[string]struct{}, len(d.cols))
	rows := -1
	for i, c := range d.cols {
		if c.Name == "" {
			return fmt.Errorf("%w: column %d has an empty name", ErrInvalid, i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate column name %q", ErrInvalid, c.Name)
		}
		seen[c.Name] = struct{}{}
		if !c.Type.Valid() {
			return fmt.Errorf("%w: column %q has unknown type %q", ErrInvalid, c.Name, c.Type)
		}
		if rows >= 0 && len(c.Values) != rows {
			return fmt.Errorf("%w: column %q has %d values, want %d", ErrInvalid, c.Name, len(c.Values), rows)
		}
		rows = len(c.Values)
	}
	return nil
}

// Columns returns the columns in order. The slice is a copy; the value
// slices are shared.
func (d *Dataset) Columns() []Column {
	out := make([]Column, len(d.cols))
	copy(out, d.cols)
	return out
}

// Column returns the column at index i.
func (d *Dataset) Column(i int) Column { return d.cols[i] }

// Lookup finds a column by name.
func (d *Dataset) Lookup(name string) (Column, bool) {
	for _, c := range d.cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.cols) }

// NumRows returns the number of rows (0 for a dataset without columns).
func (d *Dataset) NumRows() int {
	if len(d.cols) == 0 {
		return 0
	}
	return len(d.cols[0].Values)
}

// Row returns the values of row i in column order.
func (d *Dataset) Row(i int) []any {
	row := make([]any, len(d.cols))
	for j, c := range d.cols {
		row[j] = c.Values[i]
	}
	return row
}

// Rows materializes every row. Used by destinations that load row-wise.
func (d *Dataset) Rows() [][]any {
	n := d.NumRows()
	out := make([][]any, n)
	for i := 0; i < n; i++ {
		out[i] = d.Row(i)
	}
	return out
}

// SelectRows returns a new Dataset holding only the rows at the given
// indexes, in the given order.
func (d *Dataset) SelectRows(keep []int) *Dataset {
	cols := make([]Column, len(d.cols))
	for j, c := range d.cols {
		vals := make([]any, len(keep))
		for k, i := range keep {
			vals[k] = c.Values[i]
		}
		cols[j] = c.WithValues(c.Type, vals)
	}
	return &Dataset{cols: cols}
}

// String renders a value for CSV output and log lines. Nulls render as the
// empty string.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []byte:
		return fmt.Sprintf("0x%x", t)
	case time.Duration:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// FormatValue renders v according to the column type, so dates and times
// keep their short forms.
func FormatValue(t ColumnType, v any) string {
	tv, ok := v.(time.Time)
	if !ok {
		return String(v)
	}
	switch t {
	case TypeDate:
		return tv.Format(DateLayout)
	case TypeTime:
		return tv.Format(TimeLayout)
	default:
		return tv.Format(TimestampLayout)
	}
}

// Canonical output layouts.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05.999999999"
	TimestampLayout = "2006-01-02 15:04:05.999999999"
)

// Equal reports whether two cell values are identical. Nulls are equal to
// each other only.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	default:
		return a == b
	}
}
