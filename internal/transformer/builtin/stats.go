package builtin

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"dwetl/internal/dataset"
	"dwetl/internal/transformer"
)

// ImputeMedian replaces nulls in numeric columns with the column median
// (the mean of the two middle values for an even count). A rewritten
// column is promoted to real. A numeric column without any non-null value
// is left unchanged with a warning. Non-numeric columns pass through.
type ImputeMedian struct {
	Log *slog.Logger
}

func (ImputeMedian) Name() string { return "impute_median" }

func (m ImputeMedian) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	log := logger(m.Log)
	return transformer.EachColumn(ds, log, m.Name(), func(c dataset.Column) (dataset.Column, bool, error) {
		if !c.Type.Numeric() {
			return c, true, nil
		}
		vals, present, err := floats(c)
		if err != nil {
			return c, false, err
		}
		if len(present) == 0 {
			log.Warn("impute: skipping column without values", "column", c.Name)
			return c, true, nil
		}
		if len(present) == len(c.Values) {
			return c, true, nil
		}
		med := median(present)
		out := make([]any, len(c.Values))
		for i, v := range c.Values {
			if v == nil {
				out[i] = med
				continue
			}
			out[i] = vals[i]
		}
		return c.WithValues(dataset.TypeReal, out), true, nil
	})
}

// Standardize rescales numeric columns to z-scores using the mean and the
// population standard deviation of their non-null values. Nulls stay null.
// A column whose deviation is zero or undefined is left unchanged with a
// warning. A rewritten column is real.
type Standardize struct {
	Log *slog.Logger
}

func (Standardize) Name() string { return "standardize" }

func (s Standardize) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	log := logger(s.Log)
	return transformer.EachColumn(ds, log, s.Name(), func(c dataset.Column) (dataset.Column, bool, error) {
		if !c.Type.Numeric() {
			return c, true, nil
		}
		vals, present, err := floats(c)
		if err != nil {
			return c, false, err
		}
		mean, std := meanStd(present)
		if len(present) == 0 || std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
			log.Warn("standardize: skipping column with undefined or zero deviation", "column", c.Name, "values", len(present))
			return c, true, nil
		}
		out := make([]any, len(c.Values))
		for i, v := range c.Values {
			if v == nil {
				continue
			}
			out[i] = (vals[i] - mean) / std
		}
		return c.WithValues(dataset.TypeReal, out), true, nil
	})
}

// floats converts a numeric column. vals is aligned with the column (zero
// at nulls); present holds only the non-null values.
func floats(c dataset.Column) (vals, present []float64, err error) {
	vals = make([]float64, len(c.Values))
	present = make([]float64, 0, len(c.Values))
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		vals[i] = f
		present = append(present, f)
	}
	return vals, present, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		f, err := dataset.DecimalFloat(t)
		if err != nil {
			return 0, fmt.Errorf("decimal %q: %w", t, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("value %v of type %T is not numeric", v, v)
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
