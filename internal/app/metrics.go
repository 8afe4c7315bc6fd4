package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "headtail"

// Metrics holds run counters on a private registry so they can be written as
// a node_exporter textfile at the end of a batch run.
type Metrics struct {
	registry *prometheus.Registry

	SourcesTotal   *prometheus.CounterVec
	RecordsWritten prometheus.Counter
	RecordsScanned prometheus.Counter
	BytesWritten   prometheus.Counter
	SourceDuration prometheus.Histogram
	LastRun        prometheus.Gauge
}

// NewMetrics registers the run metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SourcesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sources_total",
				Help:      "Sources processed by result",
			},
			[]string{"result"},
		),
		RecordsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records written to output files",
		}),
		RecordsScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_scanned_total",
			Help:      "Records read from sources",
		}),
		BytesWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to output files",
		}),
		SourceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Wall time spent per source",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9),
		}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Observe records one source outcome.
func (m *Metrics) Observe(o Outcome) {
	if m == nil {
		return
	}
	result := "ok"
	if !o.OK {
		result = "failed"
	}
	m.SourcesTotal.WithLabelValues(result).Inc()
	m.RecordsScanned.Add(float64(o.Scanned))
	if o.OK {
		m.RecordsWritten.Add(float64(o.Records))
		m.BytesWritten.Add(float64(o.Bytes))
	}
	m.SourceDuration.Observe(o.Duration.Seconds())
}

// WriteTextfile stamps the finish time and writes all metrics to path in the
// Prometheus text format.
func (m *Metrics) WriteTextfile(path string, finished time.Time) error {
	m.LastRun.Set(float64(finished.Unix()))
	return prometheus.WriteToTextfile(path, m.registry)
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
