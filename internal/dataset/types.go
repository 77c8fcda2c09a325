package dataset

import (
	"fmt"
	"strings"
)

// ColumnType is the local type vocabulary every column is tagged with. The
// destination type of a column is always derived from this tag through a
// dialect table (see internal/ddl); no textual type substitution happens.
//
// Go representation of non-null values per type:
//
//	integer   int64
//	text      string
//	real      float64
//	boolean   bool
//	date      time.Time (UTC midnight)
//	time      time.Time (year 0, UTC)
//	timestamp time.Time
//	binary    []byte
//	decimal   string (canonical decimal text, e.g. "12.50")
//	interval  time.Duration
type ColumnType string

const (
	TypeInteger   ColumnType = "integer"
	TypeText      ColumnType = "text"
	TypeReal      ColumnType = "real"
	TypeBoolean   ColumnType = "boolean"
	TypeDate      ColumnType = "date"
	TypeTime      ColumnType = "time"
	TypeTimestamp ColumnType = "timestamp"
	TypeBinary    ColumnType = "binary"
	TypeDecimal   ColumnType = "decimal"
	TypeInterval  ColumnType = "interval"
)

// AllTypes returns every ColumnType in a stable order. Dialect tables are
// checked for totality against this list.
func AllTypes() []ColumnType {
	return []ColumnType{
		TypeInteger, TypeText, TypeReal, TypeBoolean, TypeDate,
		TypeTime, TypeTimestamp, TypeBinary, TypeDecimal, TypeInterval,
	}
}

// Numeric reports whether values of t take part in statistical
// preprocessing.
func (t ColumnType) Numeric() bool {
	switch t {
	case TypeInteger, TypeReal, TypeDecimal:
		return true
	}
	return false
}

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	for _, k := range AllTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// ParseType resolves a user supplied type name. A handful of common aliases
// are accepted ("int", "bigint", "float", "double", "bool", "string",
// "datetime", "bytes", "numeric").
func ParseType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "bigint":
		return TypeInteger, nil
	case "text", "string", "varchar":
		return TypeText, nil
	case "real", "float", "double":
		return TypeReal, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "date":
		return TypeDate, nil
	case "time":
		return TypeTime, nil
	case "timestamp", "datetime", "timestamptz":
		return TypeTimestamp, nil
	case "binary", "bytes", "blob":
		return TypeBinary, nil
	case "decimal", "numeric":
		return TypeDecimal, nil
	case "interval", "duration":
		return TypeInterval, nil
	}
	return "", fmt.Errorf("dataset: unknown column type %q", s)
}
