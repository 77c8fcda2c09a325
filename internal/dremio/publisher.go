package dremio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"dwetl/internal/batch"
	"dwetl/internal/datasource/httpds"
	"dwetl/internal/metrics"
)

// DefaultPace is the pause after every successful send.
const DefaultPace = 5 * time.Second

// Executor runs one SQL statement remotely.
type Executor interface {
	Execute(ctx context.Context, stmt string) (string, error)
}

// Publisher sends batches one at a time. A failed send stops the run for the
// file; nothing is retried.
type Publisher struct {
	exec Executor
	pace time.Duration
	log  *slog.Logger
	job  string

	// sleep is injectable to make tests fast and deterministic.
	sleep httpds.SleepFunc
}

// NewPublisher returns a publisher pausing pace after each success. A
// negative pace disables the pause.
func NewPublisher(exec Executor, pace time.Duration, log *slog.Logger, job string) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{exec: exec, pace: pace, log: log, job: job, sleep: httpds.Sleep}
}

// Send executes one command, then blocks for the pace.
func (p *Publisher) Send(ctx context.Context, cmd batch.Command) error {
	stmt := cmd.SQL()
	start := time.Now()
	id, err := p.exec.Execute(ctx, stmt)
	if err != nil {
		return fmt.Errorf("dremio: send %s on %s: %w", cmd.Kind, cmd.Table, err)
	}
	metrics.RecordBatches(p.job, 1)
	metrics.RecordBytes(p.job, int64(len(stmt)))
	p.log.Debug("dremio: sent",
		"kind", cmd.Kind.String(), "table", cmd.Table, "rows", cmd.Rows(),
		"size", humanize.IBytes(uint64(len(stmt))), "job_id", id, "took", time.Since(start))
	if p.pace > 0 {
		if err := p.sleep(ctx, p.pace); err != nil {
			return err
		}
	}
	return nil
}

// Publish sends batches in order and stops at the first failure. It returns
// the number of rows whose batches were accepted.
func (p *Publisher) Publish(ctx context.Context, batches []batch.Batch) (int, error) {
	rows := 0
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		if err := p.Send(ctx, b.Statement()); err != nil {
			return rows, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		rows += b.Rows()
	}
	return rows, nil
}
