// Package metrics is a small, backend-agnostic facade for import metrics.
//
// Callers record through the package-level helpers; the installed Backend
// decides where the numbers go. The default backend discards everything, so
// recording is always safe even when no metrics system is configured.
// Concrete backends live in the prom and datadog subpackages.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names shared by every backend.
const (
	RowsTotal     = "import_rows_total"
	BatchesTotal  = "import_batches_total"
	BytesTotal    = "import_bytes_total"
	JobsTotal     = "import_jobs_total"
	JobDuration   = "import_job_duration_seconds"
	BatchDuration = "import_batch_duration_seconds"
	ActiveImports = "import_active"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge replaces the current value of a gauge.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) SetGauge(name string, value float64, labels Labels)         {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
// Call it during startup, before any import runs.
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

// RecordRows increments the row counter for a table.
//
// Kinds used by the importer:
//   - "processed"
//   - "imported"
//   - "duplicate"
//   - "invalid"
//   - "insert_failed"
func RecordRows(table, kind string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"table": table,
		"kind":  kind,
	})
}

// RecordBatch counts one flushed batch and its latency. path is "bulk"
// when the multi-row insert succeeded and "fallback" when rows were replayed
// one at a time.
func RecordBatch(table, path string, d time.Duration) {
	lbls := Labels{
		"table": table,
		"path":  path,
	}
	backend.IncCounter(BatchesTotal, 1, lbls)
	backend.ObserveHistogram(BatchDuration, d.Seconds(), lbls)
}

// RecordBytes counts raw source bytes consumed.
func RecordBytes(table string, n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(BytesTotal, float64(n), Labels{"table": table})
}

// RecordJob counts a finished job by terminal status and observes its duration.
func RecordJob(table, status string, d time.Duration) {
	lbls := Labels{
		"table":  table,
		"status": status,
	}
	backend.IncCounter(JobsTotal, 1, lbls)
	backend.ObserveHistogram(JobDuration, d.Seconds(), lbls)
}

// SetActive reports the number of imports currently holding a slot.
func SetActive(n int) {
	backend.SetGauge(ActiveImports, float64(n), nil)
}
