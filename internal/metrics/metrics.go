// Package metrics is a minimal metrics facade for import jobs.
//
// The pipeline code depends only on Backend; concrete submission (Datadog,
// Pushgateway) lives in subpackages and is selected at process startup. The
// default backend discards everything, so library code can record metrics
// unconditionally.
package metrics

import "sync"

// Labels attach dimensions to a metric sample.
type Labels map[string]string

// Backend receives metric samples and submits them somewhere.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush submits buffered samples now.
	Flush() error
	// Close flushes and releases resources. Call once at shutdown.
	Close() error
}

// Metric names used by the import pipeline.
const (
	ImportRowsTotal       = "import_rows_total"      // labels: kind=parsed|deduped|inserted|skipped|substituted
	ImportBatchesTotal    = "import_batches_total"   // labels: status=success|failure
	ImportDurationSeconds = "import_duration_seconds"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
func (nopBackend) Close() error                             { return nil }

// Nop returns a backend that discards all samples.
func Nop() Backend { return nopBackend{} }

var (
	mu      sync.RWMutex
	current Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Call once during startup,
// before any pipeline runs.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	current = b
}

// Default returns the installed process-wide backend.
func Default() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Flush flushes the installed backend.
func Flush() error { return Default().Flush() }

// Close closes the installed backend.
func Close() error { return Default().Close() }
