// Package datadog implements a Datadog backend for the internal/metrics
// facade.
//
// Samples are buffered in memory, flushed on a ticker (default once per
// minute) and flushed one final time on Close. Short-lived import commands
// therefore still get their tail flush, while a long-running service
// produces a real time series instead of a single spike at exit.
//
// Concurrency model:
//   - pipeline goroutines call IncCounter/ObserveHistogram at any time
//   - Flush snapshots and resets the buffers under a mutex, then submits
//     out-of-lock
//   - the flush loop calls Flush periodically; Close stops the loop
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"bookshelf/internal/metrics"
)

// Options controls backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "bookshelf".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls the submission interval. Defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; unit tests use
	// them to avoid real network submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK the backend
// needs. The SDK exposes a concrete *datadogV2.MetricsApi; depending on this
// interface instead keeps tests off the network.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu          sync.Mutex
	rowCounts   map[string]float64 // kind -> count
	batchCounts map[string]float64 // status -> count
	durations   []float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client.
// Credentials come from the standard DD_API_KEY / DD_APP_KEY environment, via
// datadog.NewDefaultContext.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "bookshelf"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:         submitter,
		ctx:         dd.NewDefaultContext(parent),
		flushEvery:  flushEvery,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		baseTags:    baseTags,
		now:         nowFn,
		newTicker:   newTicker,
		rowCounts:   make(map[string]float64),
		batchCounts: make(map[string]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush. Call once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.ImportRowsTotal:
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.rowCounts[kind] += delta
	case metrics.ImportBatchesTotal:
		status := labels["status"]
		if status == "" {
			status = "unknown"
		}
		b.batchCounts[status] += delta
	default:
		// Unknown metrics are ignored; the facade is wider than any backend.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 || name != metrics.ImportDurationSeconds {
		return
	}
	_ = labels

	b.mu.Lock()
	defer b.mu.Unlock()
	b.durations = append(b.durations, value)
}

type snapshot struct {
	rowCounts   map[string]float64
	batchCounts map[string]float64
	durations   []float64
}

func (s snapshot) isEmpty() bool {
	return len(s.rowCounts) == 0 && len(s.batchCounts) == 0 && len(s.durations) == 0
}

// snapshotAndReset detaches the current buffers so submission can happen
// out-of-lock.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		rowCounts:   b.rowCounts,
		batchCounts: b.batchCounts,
		durations:   b.durations,
	}
	b.rowCounts = make(map[string]float64)
	b.batchCounts = make(map[string]float64)
	b.durations = nil
	return s
}

// Flush submits buffered metrics and resets the buffers. Buffers are reset
// even when submission fails, so a broken intake cannot grow memory without
// bound.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, network, or clocks) so it can be unit
// tested directly.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	count := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}
	gauge := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}

	series := make([]datadogV2.MetricSeries, 0, len(s.rowCounts)+len(s.batchCounts)+3)

	for kind, v := range s.rowCounts {
		if v == 0 {
			continue
		}
		series = append(series, count("bookshelf.import.rows.total", v, withTags(b.baseTags, "kind:"+kind)))
	}
	for status, v := range s.batchCounts {
		if v == 0 {
			continue
		}
		series = append(series, count("bookshelf.import.batches.total", v, withTags(b.baseTags, "status:"+status)))
	}

	if len(s.durations) > 0 {
		samples := append([]float64(nil), s.durations...)
		sort.Float64s(samples)
		series = append(series,
			gauge("bookshelf.import.duration_seconds.p50", percentile(samples, 0.50), b.baseTags),
			gauge("bookshelf.import.duration_seconds.p95", percentile(samples, 0.95), b.baseTags),
			gauge("bookshelf.import.duration_seconds.max", samples[len(samples)-1], b.baseTags),
		)
	}

	return series
}

// percentile expects sorted samples; p in (0,1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p*float64(len(sorted))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}

// ParseTagsCSV splits a comma-separated tag list, trimming whitespace and
// dropping empty entries. Used for tag values coming from the environment.
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
