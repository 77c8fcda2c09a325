// Package ddl holds the SQLite type table.
//
// SQLite supports dynamic typing, so the table prefers canonical affinities:
//   - integer-ish types -> INTEGER
//   - boolean          -> INTEGER (0/1)
//   - date/time        -> TEXT (ISO-8601)
//   - interval         -> INTEGER (nanoseconds)
package ddl

import (
	"dwetl/internal/dataset"
	gddl "dwetl/internal/ddl"
)

// Dialect is the SQLite dialect.
var Dialect = gddl.Dialect{
	Name: "sqlite",
	Types: map[dataset.ColumnType]string{
		dataset.TypeInteger:   "INTEGER",
		dataset.TypeText:      "TEXT",
		dataset.TypeReal:      "REAL",
		dataset.TypeBoolean:   "INTEGER",
		dataset.TypeDate:      "TEXT",
		dataset.TypeTime:      "TEXT",
		dataset.TypeTimestamp: "TEXT",
		dataset.TypeBinary:    "BLOB",
		dataset.TypeDecimal:   "NUMERIC",
		dataset.TypeInterval:  "INTEGER",
	},
	QuoteIdent:  gddl.DoubleQuote,
	IfNotExists: true,
}

func init() { gddl.Register(Dialect) }
