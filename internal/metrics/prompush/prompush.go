// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics facade. Import runs are short-lived processes, so metrics
// are pushed rather than scraped.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"bookshelf/internal/metrics"
)

// Backend implements metrics.Backend against a Pushgateway.
type Backend struct {
	pusher *push.Pusher

	rows     *prometheus.CounterVec
	batches  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewBackend constructs a Pushgateway backend. job becomes the Pushgateway
// grouping key; url is the Pushgateway base URL.
func NewBackend(job, url string) (*Backend, error) {
	if url == "" {
		return nil, fmt.Errorf("prompush: empty pushgateway URL")
	}

	reg := prometheus.NewRegistry()

	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookshelf_import_rows_total",
		Help: "Rows seen by the import pipeline, by kind.",
	}, []string{"kind"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookshelf_import_batches_total",
		Help: "Import batches, by outcome status.",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookshelf_import_duration_seconds",
		Help:    "Wall time of one import call.",
		Buckets: prometheus.DefBuckets,
	})

	reg.MustRegister(rows, batches, duration)

	return &Backend{
		pusher:   push.New(url, job).Gatherer(reg),
		rows:     rows,
		batches:  batches,
		duration: duration,
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	switch name {
	case metrics.ImportRowsTotal:
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.rows.WithLabelValues(kind).Add(delta)
	case metrics.ImportBatchesTotal:
		status := labels["status"]
		if status == "" {
			status = "unknown"
		}
		b.batches.WithLabelValues(status).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 || name != metrics.ImportDurationSeconds {
		return
	}
	_ = labels
	b.duration.Observe(value)
}

// Flush pushes the current metric state. Add (not Push) keeps other grouping
// keys on the gateway intact.
func (b *Backend) Flush() error { return b.pusher.Add() }

// Close performs a final push.
func (b *Backend) Close() error { return b.Flush() }
