package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// Result is the outcome of one file.
type Result struct {
	ID string
	// State is the terminal state: SKIPPED, MARKED_PROCESSED or FAILED.
	State State
	// Path lists every state the file passed through, in order.
	Path []State

	Target    string
	Loaded    int
	Published int64
	Batches   int
	Bytes     int64
	Duration  time.Duration

	// Err is a *StageError when State is FAILED.
	Err error
}

func (r *Result) advance(s State) {
	r.State = s
	r.Path = append(r.Path, s)
}

// Summary aggregates the results of a run.
type Summary struct {
	RunID     string
	Results   []Result
	Processed int
	Skipped   int
	Failed    int
	Rows      int64
	Duration  time.Duration
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.State {
	case StateMarkedProcessed:
		s.Processed++
		s.Rows += r.Published
	case StateSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Err returns an error when at least one file failed.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("pipeline: %d of %d files failed", s.Failed, len(s.Results))
}

// Log writes the end of run summary: one line per file, then the totals.
func (s Summary) Log(log *slog.Logger) {
	log = log.With("run_id", s.RunID)
	for _, r := range s.Results {
		attrs := []any{"id", r.ID, "state", string(r.State)}
		switch r.State {
		case StateMarkedProcessed:
			attrs = append(attrs, "target", r.Target, "loaded", r.Loaded, "published", r.Published, "batches", r.Batches)
			if r.Bytes > 0 {
				attrs = append(attrs, "size", humanize.IBytes(uint64(r.Bytes)))
			}
		case StateFailed:
			attrs = append(attrs, "err", r.Err)
		}
		log.Info("summary: file", attrs...)
	}
	log.Info("summary:",
		"files", len(s.Results),
		"processed", s.Processed,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"rows", humanize.Comma(s.Rows),
		"took", s.Duration.Truncate(time.Millisecond),
	)
}
