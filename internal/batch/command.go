// Package batch turns a translated dataset into SQL write commands and packs
// them into size-bounded batches for a remote SQL interface with a request
// ceiling.
package batch

import (
	"fmt"
	"strings"
)

// Kind distinguishes schema commands from row inserts.
type Kind int

const (
	KindSchema Kind = iota
	KindInsert
)

func (k Kind) String() string {
	if k == KindSchema {
		return "schema"
	}
	return "insert"
}

// Command is one write operation. For inserts the statement is kept in parts
// (table, column list, one rendered tuple per row) so compatible inserts can
// be merged and oversized ones split at row boundaries.
type Command struct {
	Kind Kind

	// Table is the quoted target table.
	Table string

	// Columns is the rendered column list, e.g. ("a", "b"). Inserts sharing
	// Table and Columns are compatible.
	Columns string

	// Tuples holds one rendered "(v1, v2)" per row.
	Tuples []string

	// Text is the full statement of a schema command.
	Text string
}

const (
	insertInto = "INSERT INTO "
	values     = " VALUES "
	tupleSep   = ", "
)

// Schema returns a schema command for table.
func Schema(table, stmt string) Command {
	return Command{Kind: KindSchema, Table: table, Text: stmt}
}

// Insert returns an insert command; columns are already quoted.
func Insert(table string, columns []string, tuples ...string) Command {
	return Command{
		Kind:    KindInsert,
		Table:   table,
		Columns: "(" + strings.Join(columns, ", ") + ")",
		Tuples:  tuples,
	}
}

// SQL renders the statement.
func (c Command) SQL() string {
	if c.Kind == KindSchema {
		return c.Text
	}
	var b strings.Builder
	b.Grow(c.Size())
	b.WriteString(insertInto)
	b.WriteString(c.Table)
	b.WriteByte(' ')
	b.WriteString(c.Columns)
	b.WriteString(values)
	for i, t := range c.Tuples {
		if i > 0 {
			b.WriteString(tupleSep)
		}
		b.WriteString(t)
	}
	return b.String()
}

// Size is the byte length of SQL(), computed without rendering.
func (c Command) Size() int {
	if c.Kind == KindSchema {
		return len(c.Text)
	}
	n := c.prefixLen()
	for i, t := range c.Tuples {
		if i > 0 {
			n += len(tupleSep)
		}
		n += len(t)
	}
	return n
}

// Rows is the number of tuples of an insert.
func (c Command) Rows() int { return len(c.Tuples) }

func (c Command) prefixLen() int {
	return len(insertInto) + len(c.Table) + 1 + len(c.Columns) + len(values)
}

// compatible reports whether o can be merged into c.
func (c Command) compatible(o Command) bool {
	return c.Kind == KindInsert && o.Kind == KindInsert && c.Table == o.Table && c.Columns == o.Columns
}

// Split decomposes an insert into single-row inserts.
func (c Command) Split() []Command {
	if c.Kind != KindInsert || len(c.Tuples) <= 1 {
		return []Command{c}
	}
	out := make([]Command, len(c.Tuples))
	for i, t := range c.Tuples {
		out[i] = Command{Kind: KindInsert, Table: c.Table, Columns: c.Columns, Tuples: []string{t}}
	}
	return out
}

// Combine merges compatible inserts into one multi-row insert sharing the
// column list. The result is never larger than the sum of its parts. A single
// command (of any kind) is returned as is.
func Combine(cmds ...Command) (Command, error) {
	switch len(cmds) {
	case 0:
		return Command{}, fmt.Errorf("batch: nothing to combine")
	case 1:
		return cmds[0], nil
	}
	first := cmds[0]
	n := 0
	for _, c := range cmds {
		if !first.compatible(c) {
			return Command{}, fmt.Errorf("batch: cannot combine %s into %s on %s", c.Kind, first.Kind, first.Table)
		}
		n += len(c.Tuples)
	}
	tuples := make([]string, 0, n)
	for _, c := range cmds {
		tuples = append(tuples, c.Tuples...)
	}
	return Command{Kind: KindInsert, Table: first.Table, Columns: first.Columns, Tuples: tuples}, nil
}
