// Package transformer defines the transformation contract applied to a
// dataset between loading and publishing, plus the column fault isolation
// shared by the built-in steps.
package transformer

import (
	"fmt"
	"log/slog"
	"strings"

	"dwetl/internal/dataset"
)

// Transformer is one pure step over a dataset. Apply must not modify its
// input; it returns a new dataset (which may share untouched columns).
type Transformer interface {
	Name() string
	Apply(ds *dataset.Dataset) (*dataset.Dataset, error)
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every step in order, feeding each the previous output.
func (c Chain) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := ds
	for _, t := range c {
		next, err := t.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("transformer: %s: %w", t.Name(), err)
		}
		out = next
	}
	return out, nil
}

// Names lists the step names, for logs.
func (c Chain) Names() []string {
	out := make([]string, len(c))
	for i, t := range c {
		out[i] = t.Name()
	}
	return out
}

// Mode selects which transformation set a run applies.
type Mode string

const (
	ModeNone                     Mode = "none"
	ModeStructuralCleanup        Mode = "structural-cleanup"
	ModeStatisticalPreprocessing Mode = "statistical-preprocessing"
)

// Modes lists the accepted modes.
func Modes() []Mode {
	return []Mode{ModeNone, ModeStructuralCleanup, ModeStatisticalPreprocessing}
}

// ParseMode validates a mode selector. The empty string means none.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeNone, nil
	}
	for _, k := range Modes() {
		if k == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("transformer: unknown mode %q (want none, structural-cleanup or statistical-preprocessing)", s)
}

// ColumnFunc rewrites one column. Returning keep=false drops the column
// without a warning.
type ColumnFunc func(c dataset.Column) (out dataset.Column, keep bool, err error)

// EachColumn applies fn to every column of ds independently. A column whose
// fn returns an error or panics is dropped and logged at warn; the remaining
// columns are still processed.
func EachColumn(ds *dataset.Dataset, log *slog.Logger, step string, fn ColumnFunc) (*dataset.Dataset, error) {
	if log == nil {
		log = slog.Default()
	}
	cols := ds.Columns()
	out := make([]dataset.Column, 0, len(cols))
	for _, c := range cols {
		nc, keep, err := applyColumn(c, fn)
		if err != nil {
			log.Warn("transformer: dropping column", "step", step, "column", c.Name, "err", err)
			continue
		}
		if !keep {
			continue
		}
		if len(nc.Values) != len(c.Values) {
			log.Warn("transformer: dropping column", "step", step, "column", c.Name,
				"err", fmt.Sprintf("row count changed from %d to %d", len(c.Values), len(nc.Values)))
			continue
		}
		out = append(out, nc)
	}
	return dataset.New(out...)
}

func applyColumn(c dataset.Column, fn ColumnFunc) (out dataset.Column, keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(c)
}
