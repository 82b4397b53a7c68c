// Package prom implements a Prometheus backend for the metrics package.
//
// Collectors live in a private registry which is exposed for scraping
// through Handler.
package prom

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/tpcload/internal/metrics"
)

// Backend is a Prometheus scrape-endpoint metrics backend.
type Backend struct {
	reg *prometheus.Registry

	rows          *prometheus.CounterVec   // import_rows_total
	batches       *prometheus.CounterVec   // import_batches_total
	bytes         *prometheus.CounterVec   // import_bytes_total
	jobs          *prometheus.CounterVec   // import_jobs_total
	jobDuration   *prometheus.HistogramVec // import_job_duration_seconds
	batchDuration *prometheus.HistogramVec // import_batch_duration_seconds
	active        prometheus.Gauge         // import_active
}

// NewBackend constructs a backend whose metric names are prefixed with namespace.
func NewBackend(namespace string) (*Backend, error) {
	reg := prometheus.NewRegistry()

	b := &Backend{
		reg: reg,
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metrics.RowsTotal,
			Help:      "Rows seen by the importer, partitioned by table and outcome kind.",
		}, []string{"table", "kind"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metrics.BatchesTotal,
			Help:      "Flushed batches, partitioned by table and insert path.",
		}, []string{"table", "path"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metrics.BytesTotal,
			Help:      "Raw source bytes consumed, partitioned by table.",
		}, []string{"table"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metrics.JobsTotal,
			Help:      "Finished import jobs, partitioned by table and terminal status.",
		}, []string{"table", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      metrics.JobDuration,
			Help:      "Wall time of import jobs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}, []string{"table", "status"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      metrics.BatchDuration,
			Help:      "Latency of batch flushes in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "path"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      metrics.ActiveImports,
			Help:      "Imports currently holding a slot.",
		}),
	}

	for _, c := range []prometheus.Collector{
		b.rows, b.batches, b.bytes, b.jobs, b.jobDuration, b.batchDuration, b.active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prom: register collector: %w", err)
		}
	}

	return b, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})
}

// Registry exposes the underlying registry, mainly for tests.
func (b *Backend) Registry() *prometheus.Registry {
	return b.reg
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.RowsTotal:
		b.rows.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
	case metrics.BatchesTotal:
		b.batches.WithLabelValues(labels["table"], labels["path"]).Add(delta)
	case metrics.BytesTotal:
		b.bytes.WithLabelValues(labels["table"]).Add(delta)
	case metrics.JobsTotal:
		b.jobs.WithLabelValues(labels["table"], labels["status"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.JobDuration:
		b.jobDuration.WithLabelValues(labels["table"], labels["status"]).Observe(value)
	case metrics.BatchDuration:
		b.batchDuration.WithLabelValues(labels["table"], labels["path"]).Observe(value)
	}
}

func (b *Backend) SetGauge(name string, value float64, labels metrics.Labels) {
	if name == metrics.ActiveImports {
		b.active.Set(value)
	}
}

// Flush is a no-op; Prometheus scrapes the registry.
func (b *Backend) Flush() error {
	return nil
}
