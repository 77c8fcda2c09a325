package dataset

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are common date formats (without time component).
var dateLayouts = []string{
	"2006-01-02",  // ISO
	"02.01.2006",  // DMY dot
	"01.02.2006",  // MDY dot
	"02/01/2006",  // DMY slash
	"01/02/2006",  // MDY slash
	"2 Jan 2006",  // DMY textual day
	"02-Jan-2006", // DMY dash textual month
	"2006/01/02",  // ISO slashy
}

// timestampLayouts are common timestamp formats (with time component).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05", // DMY
	"01/02/2006 15:04:05", // MDY
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
}

// timeLayouts are time-of-day formats.
var timeLayouts = []string{
	"15:04:05",
	"15:04:05.999999999",
	"15:04",
}

// InferType guesses a column type from raw text cells. Empty cells (after
// trimming) are nulls and do not vote. The narrowest type that accepts every
// non-null value wins, tried in order: integer, boolean, real, time, date or
// timestamp, text. An all-null column is text.
//
// decimal, binary and interval are never inferred; they are only reachable
// through explicit type hints.
func InferType(raw []string) ColumnType {
	vals := nonEmptyTrimmed(raw)
	if len(vals) == 0 {
		return TypeText
	}
	if allMatch(vals, isInt) {
		return TypeInteger
	}
	if allMatch(vals, isBool) {
		return TypeBoolean
	}
	if allMatch(vals, isFloat) {
		return TypeReal
	}
	if allMatch(vals, isTimeOfDay) {
		return TypeTime
	}
	allDate := true
	anyTime := false
	for _, v := range vals {
		ok, hasTime := parseDateOrTimestamp(v)
		if !ok {
			allDate = false
			break
		}
		if hasTime {
			anyTime = true
		}
	}
	if allDate {
		if anyTime {
			return TypeTimestamp
		}
		return TypeDate
	}
	return TypeText
}

// CoerceError reports the first cell a column could not be converted at.
type CoerceError struct {
	Type  ColumnType
	Row   int
	Value string
	Err   error
}

func (e *CoerceError) Error() string {
	return fmt.Sprintf("dataset: coerce row %d value %q to %s: %v", e.Row, e.Value, e.Type, e.Err)
}

func (e *CoerceError) Unwrap() error { return e.Err }

// Coerce converts raw text cells into typed values of t. Empty cells become
// nulls; text cells keep their untrimmed content.
func Coerce(raw []string, t ColumnType) ([]any, error) {
	out := make([]any, len(raw))
	for i, s := range raw {
		st := strings.TrimSpace(s)
		if st == "" {
			continue
		}
		if t == TypeText {
			out[i] = s
			continue
		}
		v, err := parseValue(st, t)
		if err != nil {
			return nil, &CoerceError{Type: t, Row: i, Value: s, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

func parseValue(s string, t ColumnType) (any, error) {
	switch t {
	case TypeInteger:
		return strconv.ParseInt(s, 10, 64)
	case TypeReal:
		return strconv.ParseFloat(s, 64)
	case TypeBoolean:
		return parseBool(s)
	case TypeDate:
		tv, err := parseLayouts(s, dateLayouts)
		if err != nil {
			// Accept a timestamp and keep only its date part.
			ts, terr := parseLayouts(s, timestampLayouts)
			if terr != nil {
				return nil, err
			}
			y, m, d := ts.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		return tv, nil
	case TypeTime:
		return parseLayouts(s, timeLayouts)
	case TypeTimestamp:
		tv, err := parseLayouts(s, timestampLayouts)
		if err != nil {
			if dv, derr := parseLayouts(s, dateLayouts); derr == nil {
				return dv, nil
			}
			return nil, err
		}
		return tv, nil
	case TypeBinary:
		if h, ok := strings.CutPrefix(s, "0x"); ok {
			return hex.DecodeString(h)
		}
		if h, ok := strings.CutPrefix(s, `\x`); ok {
			return hex.DecodeString(h)
		}
		return []byte(s), nil
	case TypeDecimal:
		return parseDecimal(s)
	case TypeInterval:
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not a duration or whole seconds")
		}
		return time.Duration(secs) * time.Second, nil
	}
	return nil, fmt.Errorf("unsupported type %q", t)
}

// parseDecimal validates s as a finite decimal number and returns its
// canonical text (no exponent, no redundant sign).
func parseDecimal(s string) (string, error) {
	if strings.ContainsAny(s, "/") {
		return "", fmt.Errorf("not a decimal")
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return "", fmt.Errorf("not a decimal")
	}
	scale := 0
	if i := strings.IndexAny(s, "."); i >= 0 {
		frac := s[i+1:]
		if j := strings.IndexAny(frac, "eE"); j >= 0 {
			frac = frac[:j]
		}
		scale = len(frac)
	}
	if r.IsInt() && scale == 0 {
		return r.Num().String(), nil
	}
	if scale == 0 {
		scale = 10
	}
	return r.FloatString(scale), nil
}

// DecimalFloat converts a canonical decimal string to float64.
func DecimalFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func parseLayouts(s string, layouts []string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		tv, err := time.Parse(layout, s)
		if err == nil {
			return tv, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// nonEmptyTrimmed returns the non-empty, trimmed values.
func nonEmptyTrimmed(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// allMatch reports whether every value satisfies fn.
func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

// isBool accepts common textual booleans and 1/0.
func isBool(s string) bool {
	_, err := parseBool(s)
	return err == nil
}

// isInt requires a signed base-10 integer that fits in int64.
func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation floats. Integers count as
// floats here; isInt is tried first by InferType.
func isFloat(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	// "NaN" and "Inf" parse but are not numbers in a CSV sense.
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isTimeOfDay(s string) bool {
	_, err := parseLayouts(s, timeLayouts)
	return err == nil
}

// parseDateOrTimestamp tries to parse s as a timestamp first, then a date.
// It returns ok=true when one of the layouts matched and hasTime whether time
// components were present.
func parseDateOrTimestamp(s string) (ok bool, hasTime bool) {
	if _, err := parseLayouts(s, timestampLayouts); err == nil {
		return true, true
	}
	if _, err := parseLayouts(s, dateLayouts); err == nil {
		return true, false
	}
	return false, false
}
