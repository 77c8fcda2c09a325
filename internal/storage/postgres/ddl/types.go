// Package ddl holds the Postgres type table.
package ddl

import (
	"dwetl/internal/dataset"
	gddl "dwetl/internal/ddl"
)

// Dialect is the Postgres dialect.
var Dialect = gddl.Dialect{
	Name: "postgres",
	Types: map[dataset.ColumnType]string{
		dataset.TypeInteger:   "BIGINT",
		dataset.TypeText:      "TEXT",
		dataset.TypeReal:      "DOUBLE PRECISION",
		dataset.TypeBoolean:   "BOOLEAN",
		dataset.TypeDate:      "DATE",
		dataset.TypeTime:      "TIME",
		dataset.TypeTimestamp: "TIMESTAMPTZ",
		dataset.TypeBinary:    "BYTEA",
		dataset.TypeDecimal:   "NUMERIC",
		dataset.TypeInterval:  "INTERVAL",
	},
	QuoteIdent:  gddl.DoubleQuote,
	IfNotExists: true,
}

func init() { gddl.Register(Dialect) }
