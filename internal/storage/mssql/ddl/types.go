// Package ddl holds the SQL Server type table.
package ddl

import (
	"fmt"
	"strings"

	"dwetl/internal/dataset"
	gddl "dwetl/internal/ddl"
)

// Dialect is the SQL Server dialect. SQL Server has no CREATE TABLE IF NOT
// EXISTS; the statement is guarded with OBJECT_ID instead.
var Dialect = gddl.Dialect{
	Name: "mssql",
	Types: map[dataset.ColumnType]string{
		dataset.TypeInteger:   "BIGINT",
		dataset.TypeText:      "NVARCHAR(MAX)",
		dataset.TypeReal:      "FLOAT",
		dataset.TypeBoolean:   "BIT",
		dataset.TypeDate:      "DATE",
		dataset.TypeTime:      "TIME",
		dataset.TypeTimestamp: "DATETIME2",
		dataset.TypeBinary:    "VARBINARY(MAX)",
		dataset.TypeDecimal:   "DECIMAL(38, 10)",
		dataset.TypeInterval:  "BIGINT",
	},
	QuoteIdent: QuoteIdent,
	Guard: func(quotedFQN, stmt string) string {
		lit := strings.ReplaceAll(quotedFQN, "'", "''")
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", lit, stmt)
	},
}

// QuoteIdent quotes a SQL Server identifier using [brackets], escaping ].
func QuoteIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

func init() { gddl.Register(Dialect) }
