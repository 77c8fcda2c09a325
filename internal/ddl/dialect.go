package ddl

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dwetl/internal/dataset"
)

// ErrUnknownType is returned when a column type has no entry in a dialect
// table. It is a configuration error, never defaulted.
var ErrUnknownType = errors.New("ddl: unknown column type")

// Dialect describes how one destination spells types and identifiers.
//
// Types must be total over dataset.AllTypes(); Check verifies this at start
// up so a missing entry fails before any I/O.
type Dialect struct {
	// Name is the destination kind, e.g. "postgres" or "dremio".
	Name string

	// Types maps every local column type to the declared SQL type.
	Types map[dataset.ColumnType]string

	// QuoteIdent quotes a single identifier part.
	QuoteIdent func(string) string

	// IfNotExists selects "CREATE TABLE IF NOT EXISTS". Dialects without it
	// may provide Guard instead.
	IfNotExists bool

	// Guard wraps a plain CREATE TABLE statement so that it only runs when
	// the table is missing (quotedFQN is the already quoted table name).
	Guard func(quotedFQN, stmt string) string
}

// MapType translates a column type. Unknown types yield ErrUnknownType.
func (d Dialect) MapType(t dataset.ColumnType) (string, error) {
	s, ok := d.Types[t]
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w %q for dialect %s", ErrUnknownType, t, d.Name)
	}
	return s, nil
}

// Check reports the first column type the dialect cannot translate.
func (d Dialect) Check() error {
	if d.QuoteIdent == nil {
		return fmt.Errorf("ddl: dialect %s has no identifier quoting", d.Name)
	}
	for _, t := range dataset.AllTypes() {
		if _, err := d.MapType(t); err != nil {
			return err
		}
	}
	return nil
}

// QuoteFQN quotes every dot separated part of a table name.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

// QuoteAll quotes a list of column names.
func (d Dialect) QuoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.QuoteIdent(n)
	}
	return out
}

// TableFor derives the table definition of ds. Every column is nullable.
func (d Dialect) TableFor(fqn string, ds *dataset.Dataset) (TableDef, error) {
	def := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, ds.NumCols())}
	for _, c := range ds.Columns() {
		typ, err := d.MapType(c.Type)
		if err != nil {
			return TableDef{}, fmt.Errorf("column %q: %w", c.Name, err)
		}
		def.Columns = append(def.Columns, ColumnDef{Name: c.Name, SQLType: typ, Nullable: true})
	}
	return def, nil
}

// DoubleQuote quotes an identifier the ANSI way, doubling embedded quotes.
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

var (
	dialectMu sync.RWMutex
	dialects  = map[string]Dialect{}
)

// Register makes a dialect available under d.Name. Backend packages call it
// from init.
func Register(d Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[d.Name] = d
}

// Lookup returns the dialect registered for name.
func Lookup(name string) (Dialect, error) {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("ddl: no dialect registered for %q", name)
	}
	return d, nil
}

// CheckAll runs Check over every registered dialect.
func CheckAll() error {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := dialects[n].Check(); err != nil {
			return err
		}
	}
	return nil
}
