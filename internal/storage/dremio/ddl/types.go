// Package ddl holds the Dremio type table used to translate datasets before
// they are published over the SQL REST API.
package ddl

import (
	"dwetl/internal/dataset"
	gddl "dwetl/internal/ddl"
)

// Dialect is the Dremio dialect. Identifiers use ANSI double quotes and
// "CREATE TABLE IF NOT EXISTS" is supported for Iceberg targets.
var Dialect = gddl.Dialect{
	Name: "dremio",
	Types: map[dataset.ColumnType]string{
		dataset.TypeInteger:   "BIGINT",
		dataset.TypeText:      "VARCHAR",
		dataset.TypeReal:      "DOUBLE",
		dataset.TypeBoolean:   "BOOLEAN",
		dataset.TypeDate:      "DATE",
		dataset.TypeTime:      "TIME",
		dataset.TypeTimestamp: "TIMESTAMP",
		dataset.TypeBinary:    "VARBINARY",
		dataset.TypeDecimal:   "DECIMAL(38, 10)",
		dataset.TypeInterval:  "INTERVAL DAY TO SECOND",
	},
	QuoteIdent:  gddl.DoubleQuote,
	IfNotExists: true,
}

func init() { gddl.Register(Dialect) }
