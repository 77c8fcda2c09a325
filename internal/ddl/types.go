package ddl

// ColumnDef is one column of a translated table.
//
// Fields:
//   - Name: column name, unquoted; quoting happens at render time
//   - SQLType: declared type taken from the dialect table
//   - Nullable: whether NULL is allowed (translated datasets are always nullable)
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the dotted table name (e.g. "space.folder.table") and the
// ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the unquoted column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
