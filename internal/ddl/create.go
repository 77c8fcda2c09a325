// Package ddl holds the schema translator: per-dialect type tables, a small
// dialect-agnostic table model, and CREATE TABLE rendering.
//
// Backend packages (internal/storage/<kind>/ddl) define and register their
// Dialect at init time; callers look dialects up by destination kind.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement for t in dialect d.
//
// Rules:
//
//   - t.FQN must be non-empty; every dotted part is quoted by the dialect.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     <quoted name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//   - Columns with PrimaryKey == true form a trailing PRIMARY KEY clause.
//
//   - The statement is idempotent: either IF NOT EXISTS or the dialect Guard
//     is applied. A dialect with neither renders a plain CREATE TABLE.
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	if d.QuoteIdent == nil {
		return "", fmt.Errorf("ddl: dialect %q has no identifier quoting", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	head := "CREATE TABLE "
	if d.IfNotExists {
		head = "CREATE TABLE IF NOT EXISTS "
	}
	stmt := fmt.Sprintf("%s%s (\n  %s\n)", head, quoted, strings.Join(cols, ",\n  "))
	if !d.IfNotExists && d.Guard != nil {
		stmt = d.Guard(quoted, stmt)
	}
	return stmt, nil
}
