package storage

import (
	"context"
	"fmt"
	"log/slog"

	"dwetl/internal/dataset"
	"dwetl/internal/ddl"
	"dwetl/internal/metrics"
)

// Repository is a SQL database a table destination writes through.
type Repository interface {
	// CopyFrom bulk inserts rows into table (dotted, unquoted).
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	// Exec runs one statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// ValueFunc converts a dataset value into the form a driver accepts for a
// column of type t. nil values are never passed.
type ValueFunc func(t dataset.ColumnType, v any) (any, error)

// Table is a Destination that creates the target table through the schema
// translator, then bulk copies rows in batches of BatchSize.
type Table struct {
	kind      string
	dialect   ddl.Dialect
	repo      Repository
	convert   ValueFunc
	batchSize int
	log       *slog.Logger
	job       string
}

// NewTable builds a table destination. convert may be nil when the driver
// takes dataset values as they are.
func NewTable(kind string, d ddl.Dialect, repo Repository, convert ValueFunc, cfg Config) *Table {
	return &Table{
		kind:      kind,
		dialect:   d,
		repo:      repo,
		convert:   convert,
		batchSize: cfg.batchSize(),
		log:       cfg.logger(),
		job:       cfg.Job,
	}
}

func (t *Table) Kind() string         { return t.kind }
func (t *Table) Translated() bool     { return true }
func (t *Table) Dialect() ddl.Dialect { return t.dialect }

func (t *Table) Close() error {
	t.repo.Close()
	return nil
}

// Plan translates ds into a table definition and converts its rows.
func (t *Table) Plan(_ context.Context, tg Target, ds *dataset.Dataset) (Plan, error) {
	def, err := t.dialect.TableFor(tg.Table, ds)
	if err != nil {
		return nil, &PlanError{Stage: StageTranslate, Err: err}
	}
	create, err := ddl.BuildCreateTableSQL(t.dialect, def)
	if err != nil {
		return nil, &PlanError{Stage: StageTranslate, Err: err}
	}

	types := make([]dataset.ColumnType, ds.NumCols())
	for i, c := range ds.Columns() {
		types[i] = c.Type
	}
	rows := ds.Rows()
	if t.convert != nil {
		for r, row := range rows {
			for i, v := range row {
				if v == nil {
					continue
				}
				cv, err := t.convert(types[i], v)
				if err != nil {
					return nil, &PlanError{Stage: StageBatch, Err: fmt.Errorf("row %d column %q: %w", r, def.Columns[i].Name, err)}
				}
				row[i] = cv
			}
		}
	}
	return &tablePlan{t: t, def: def, create: create, rows: rows}, nil
}

type tablePlan struct {
	t      *Table
	def    ddl.TableDef
	create string
	rows   [][]any
}

func (p *tablePlan) Info() PlanInfo {
	n := len(p.rows)
	return PlanInfo{
		Target:  p.def.FQN,
		Rows:    n,
		Batches: (n + p.t.batchSize - 1) / p.t.batchSize,
	}
}

// Publish creates the table when missing and loads the rows.
func (p *tablePlan) Publish(ctx context.Context) (int64, error) {
	if err := p.t.repo.Exec(ctx, p.create); err != nil {
		return 0, fmt.Errorf("%s: create %s: %w", p.t.kind, p.def.FQN, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any)
	go func() {
		defer close(in)
		for _, r := range p.rows {
			select {
			case in <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	cols := p.def.ColumnNames()
	n, err := LoadBatches(ctx, p.t.log, cols, in, p.t.batchSize, func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		n, err := p.t.repo.CopyFrom(ctx, p.def.FQN, columns, rows)
		if err == nil {
			metrics.RecordBatches(p.t.job, 1)
		}
		return n, err
	})
	if err != nil {
		return n, fmt.Errorf("%s: load %s: %w", p.t.kind, p.def.FQN, err)
	}
	return n, nil
}
