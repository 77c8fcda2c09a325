// Package dremio is the Dremio destination: it translates a dataset into the
// Dremio dialect, serializes it into SQL commands, packs them under the size
// ceiling and publishes the batches one at a time over the REST API.
package dremio

import (
	"context"
	"fmt"
	"log/slog"

	"dwetl/internal/batch"
	"dwetl/internal/dataset"
	"dwetl/internal/ddl"
	rest "dwetl/internal/dremio"
	"dwetl/internal/storage"
	dremioddl "dwetl/internal/storage/dremio/ddl"
)

// newExecutor is a test hook that points to the REST client by default.
var newExecutor = func(cfg rest.Config) (rest.Executor, error) {
	return rest.NewClient(cfg)
}

// Destination publishes translated datasets to Dremio.
type Destination struct {
	dialect        ddl.Dialect
	assembler      batch.Assembler
	publisher      *rest.Publisher
	rowsPerCommand int
	log            *slog.Logger
}

// New builds a destination sending through exec.
func New(exec rest.Executor, cfg storage.Config) *Destination {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	pace := cfg.Pace
	if pace == 0 {
		pace = rest.DefaultPace
	}
	ceiling := cfg.Ceiling
	if ceiling <= 0 {
		ceiling = batch.DefaultCeiling
	}
	rpc := cfg.RowsPerCommand
	if rpc <= 0 {
		rpc = storage.DefaultRowsPerCommand
	}
	return &Destination{
		dialect:        dremioddl.Dialect,
		assembler:      batch.Assembler{Ceiling: ceiling},
		publisher:      rest.NewPublisher(exec, pace, log, cfg.Job),
		rowsPerCommand: rpc,
		log:            log,
	}
}

func (d *Destination) Kind() string     { return "dremio" }
func (d *Destination) Translated() bool { return true }
func (d *Destination) Close() error     { return nil }

// Plan translates ds, serializes it and assembles the batches. No network
// traffic happens before Publish.
func (d *Destination) Plan(_ context.Context, tg storage.Target, ds *dataset.Dataset) (storage.Plan, error) {
	def, err := d.dialect.TableFor(tg.Table, ds)
	if err != nil {
		return nil, &storage.PlanError{Stage: storage.StageTranslate, Err: err}
	}
	if _, err := ddl.BuildCreateTableSQL(d.dialect, def); err != nil {
		return nil, &storage.PlanError{Stage: storage.StageTranslate, Err: err}
	}

	cmds, err := batch.Serialize(d.dialect, def, ds, d.rowsPerCommand)
	if err != nil {
		return nil, &storage.PlanError{Stage: storage.StageBatch, Err: err}
	}
	batches, err := d.assembler.Assemble(cmds)
	if err != nil {
		return nil, &storage.PlanError{Stage: storage.StageBatch, Err: err}
	}

	var size int64
	for _, b := range batches {
		size += int64(b.Size())
	}
	d.log.Debug("dremio: planned",
		"table", def.FQN, "commands", len(cmds), "batches", len(batches), "bytes", size)
	return &plan{
		d:       d,
		batches: batches,
		info:    storage.PlanInfo{Target: def.FQN, Rows: ds.NumRows(), Batches: len(batches), Bytes: size},
	}, nil
}

type plan struct {
	d       *Destination
	batches []batch.Batch
	info    storage.PlanInfo
}

func (p *plan) Info() storage.PlanInfo { return p.info }

// Batches returns the assembled batches in send order.
func (p *plan) Batches() []batch.Batch { return p.batches }

func (p *plan) Publish(ctx context.Context) (int64, error) {
	n, err := p.d.publisher.Publish(ctx, p.batches)
	if err != nil {
		return int64(n), fmt.Errorf("dremio: publish %s: %w", p.info.Target, err)
	}
	return int64(n), nil
}

func init() {
	storage.Register("dremio", func(_ context.Context, cfg storage.Config) (storage.Destination, error) {
		exec, err := newExecutor(cfg.Dremio)
		if err != nil {
			return nil, err
		}
		return New(exec, cfg), nil
	})
}
