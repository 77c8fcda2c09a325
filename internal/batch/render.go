package batch

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dwetl/internal/dataset"
	"dwetl/internal/ddl"
)

// Literal renders v as an ANSI SQL literal for a column of type t.
func Literal(t dataset.ColumnType, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "NULL", nil
		}
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		if t == dataset.TypeDecimal {
			return x, nil
		}
		return quote(x), nil
	case []byte:
		return "X'" + hex.EncodeToString(x) + "'", nil
	case time.Time:
		switch t {
		case dataset.TypeDate:
			return "DATE '" + x.Format(dataset.DateLayout) + "'", nil
		case dataset.TypeTime:
			return "TIME '" + x.Format("15:04:05.000") + "'", nil
		default:
			return "TIMESTAMP '" + x.UTC().Format("2006-01-02 15:04:05.000") + "'", nil
		}
	case time.Duration:
		return "INTERVAL '" + strconv.FormatFloat(x.Seconds(), 'f', -1, 64) + "' SECOND", nil
	}
	return "", fmt.Errorf("batch: cannot render %T for %s column", v, t)
}

func quote(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

// Tuple renders one row as "(v1, v2, ...)".
func Tuple(types []dataset.ColumnType, row []any) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range row {
		if i > 0 {
			b.WriteString(", ")
		}
		lit, err := Literal(types[i], v)
		if err != nil {
			return "", err
		}
		b.WriteString(lit)
	}
	b.WriteByte(')')
	return b.String(), nil
}

// Serialize turns ds into write commands for table def in dialect d: one
// schema command followed by inserts of rowsPerCommand rows each.
func Serialize(d ddl.Dialect, def ddl.TableDef, ds *dataset.Dataset, rowsPerCommand int) ([]Command, error) {
	if rowsPerCommand <= 0 {
		rowsPerCommand = 1
	}
	stmt, err := ddl.BuildCreateTableSQL(d, def)
	if err != nil {
		return nil, err
	}
	table := d.QuoteFQN(def.FQN)
	cols := d.QuoteAll(def.ColumnNames())

	types := make([]dataset.ColumnType, ds.NumCols())
	for i, c := range ds.Columns() {
		types[i] = c.Type
	}

	n := ds.NumRows()
	out := make([]Command, 0, 1+(n+rowsPerCommand-1)/rowsPerCommand)
	out = append(out, Schema(table, stmt))
	for start := 0; start < n; start += rowsPerCommand {
		end := min(start+rowsPerCommand, n)
		tuples := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			tup, err := Tuple(types, ds.Row(i))
			if err != nil {
				return nil, fmt.Errorf("batch: row %d: %w", i, err)
			}
			tuples = append(tuples, tup)
		}
		out = append(out, Insert(table, cols, tuples...))
	}
	return out, nil
}
