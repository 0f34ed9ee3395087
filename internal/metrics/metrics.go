// Package metrics holds the Prometheus collectors for a crawl run.
//
// Collectors are registered on a private registry so that a run can be
// exported as a node_exporter textfile without dragging in Go runtime metrics.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "losca"

// Metrics holds all collectors for fetching and normalizing meetings
type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal      *prometheus.CounterVec
	FetchSeconds      *prometheus.HistogramVec
	CacheHitsTotal    prometheus.Counter
	DocumentsTotal    *prometheus.CounterVec
	MeetingsTotal     *prometheus.CounterVec
	DroppedTotal      *prometheus.CounterVec
	SpiderErrorsTotal *prometheus.CounterVec
	SpiderSeconds     *prometheus.HistogramVec
}

// New creates a Metrics with its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "HTTP fetch attempts by host and outcome",
			},
			[]string{"host", "outcome"},
		),
		FetchSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_seconds",
				Help:      "HTTP fetch latency including retries",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"host"},
		),
		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Documents served from the response cache",
			},
		),
		DocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_total",
				Help:      "Fetched documents handed to extractors",
			},
			[]string{"spider"},
		),
		MeetingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "meetings_total",
				Help:      "Meetings emitted by spider and status",
			},
			[]string{"spider", "status"},
		),
		DroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_candidates_total",
				Help:      "Candidates rejected by the normalizer",
			},
			[]string{"spider", "reason"},
		),
		SpiderErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spider_errors_total",
				Help:      "Spider fetch or parse failures",
			},
			[]string{"spider", "stage"},
		),
		SpiderSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "spider_seconds",
				Help:      "Wall time per spider run",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"spider"},
		),
	}
}

// Registry returns the registry holding every collector
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch records one fetch and its duration
func (m *Metrics) ObserveFetch(host, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(host, outcome).Inc()
	m.FetchSeconds.WithLabelValues(host).Observe(d.Seconds())
}

// CacheHit records a document served from cache
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// Document records a document parsed by a spider
func (m *Metrics) Document(spider string) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(spider).Inc()
}

// Meeting records an emitted meeting
func (m *Metrics) Meeting(spider, status string) {
	if m == nil {
		return
	}
	m.MeetingsTotal.WithLabelValues(spider, status).Inc()
}

// Dropped records a rejected candidate
func (m *Metrics) Dropped(spider, reason string) {
	if m == nil {
		return
	}
	m.DroppedTotal.WithLabelValues(spider, reason).Inc()
}

// SpiderError records a failure in the fetch or parse stage
func (m *Metrics) SpiderError(spider, stage string) {
	if m == nil {
		return
	}
	m.SpiderErrorsTotal.WithLabelValues(spider, stage).Inc()
}

// SpiderDuration records how long a spider took
func (m *Metrics) SpiderDuration(spider string, d time.Duration) {
	if m == nil {
		return
	}
	m.SpiderSeconds.WithLabelValues(spider).Observe(d.Seconds())
}

// WriteTextfile writes all metrics in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
