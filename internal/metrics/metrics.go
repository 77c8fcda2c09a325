// Package metrics is a small, backend-agnostic layer for recording pipeline
// metrics.
//
// A global backend defaults to a no-op, so instrumentation is always safe to
// call. Concrete systems (Prometheus Pushgateway, DogStatsD) live in
// subpackages and are installed once at start-up with SetBackend.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal      = "dwetl_step_total"
	StepDuration   = "dwetl_step_duration_seconds"
	RowsTotal      = "dwetl_rows_total"
	BatchesTotal   = "dwetl_batches_total"
	FilesTotal     = "dwetl_files_total"
	BytesSentTotal = "dwetl_bytes_sent_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a pipeline state (load, transform,
// publish, ...) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow counts rows by kind: "loaded", "dropped", "published".
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordBatches counts requests sent to a destination.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}

// RecordFile counts one file reaching a terminal outcome: "processed",
// "skipped" or "failed".
func RecordFile(job, outcome string) {
	backend.IncCounter(FilesTotal, 1, Labels{"job": job, "outcome": outcome})
}

// RecordBytes counts payload bytes sent to a destination.
func RecordBytes(job string, n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(BytesSentTotal, float64(n), Labels{"job": job})
}
