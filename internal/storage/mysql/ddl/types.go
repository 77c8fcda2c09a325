// Package ddl holds the MySQL type table.
package ddl

import (
	"strings"

	"dwetl/internal/dataset"
	gddl "dwetl/internal/ddl"
)

// Dialect is the MySQL dialect.
var Dialect = gddl.Dialect{
	Name: "mysql",
	Types: map[dataset.ColumnType]string{
		dataset.TypeInteger:   "BIGINT",
		dataset.TypeText:      "LONGTEXT",
		dataset.TypeReal:      "DOUBLE",
		dataset.TypeBoolean:   "BOOLEAN",
		dataset.TypeDate:      "DATE",
		dataset.TypeTime:      "TIME(6)",
		dataset.TypeTimestamp: "DATETIME(6)",
		dataset.TypeBinary:    "LONGBLOB",
		dataset.TypeDecimal:   "DECIMAL(38, 10)",
		dataset.TypeInterval:  "BIGINT",
	},
	QuoteIdent:  QuoteIdent,
	IfNotExists: true,
}

// QuoteIdent quotes a MySQL identifier with backticks.
func QuoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func init() { gddl.Register(Dialect) }
