// Package silver is the object-store destination: the transformed dataset is
// written back as CSV under the destination prefix instead of a table. It
// does not go through the schema translator.
package silver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"dwetl/internal/dataset"
	"dwetl/internal/datasource"
	"dwetl/internal/metrics"
	"dwetl/internal/parser/csv"
	"dwetl/internal/storage"
)

// Destination writes datasets as CSV objects.
type Destination struct {
	w   datasource.ObjectWriter
	log *slog.Logger
	job string
}

// New returns a destination writing through w.
func New(w datasource.ObjectWriter, log *slog.Logger, job string) *Destination {
	if log == nil {
		log = slog.Default()
	}
	return &Destination{w: w, log: log, job: job}
}

func (d *Destination) Kind() string     { return "silver" }
func (d *Destination) Translated() bool { return false }
func (d *Destination) Close() error     { return nil }

func (d *Destination) Plan(_ context.Context, tg storage.Target, ds *dataset.Dataset) (storage.Plan, error) {
	if tg.Object == "" {
		return nil, &storage.PlanError{Stage: storage.StageBatch, Err: errors.New("silver: target object key is empty")}
	}
	return &plan{d: d, key: tg.Object, ds: ds}, nil
}

type plan struct {
	d   *Destination
	key string
	ds  *dataset.Dataset
}

func (p *plan) Info() storage.PlanInfo {
	return storage.PlanInfo{Target: p.key, Rows: p.ds.NumRows(), Batches: 1}
}

// Publish streams the CSV encoding straight into the object writer.
func (p *plan) Publish(ctx context.Context) (int64, error) {
	pr, pw := io.Pipe()
	cw := &countingWriter{w: pw}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := csv.WriteDataset(cw, p.ds)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := p.d.w.Put(gctx, p.key, pr)
		pr.CloseWithError(err)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("silver: write %s: %w", p.key, err)
	}

	metrics.RecordBatches(p.d.job, 1)
	metrics.RecordBytes(p.d.job, cw.n)
	p.d.log.Info("silver: wrote object",
		"key", p.key, "rows", p.ds.NumRows(), "size", humanize.IBytes(uint64(cw.n)))
	return int64(p.ds.NumRows()), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

func init() {
	storage.Register("silver", func(_ context.Context, cfg storage.Config) (storage.Destination, error) {
		if cfg.Writer == nil {
			return nil, errors.New("silver: no object writer configured")
		}
		return New(cfg.Writer, cfg.Log, cfg.Job), nil
	})
}
