// Package metrics exposes Prometheus instruments for the ingestion
// pipeline and the query engine. Instruments are recorded by the
// driving adapters so the core services stay dependency-free.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every instrument behind one registry.
type Metrics struct {
	registry *prometheus.Registry

	ingestTotal     *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	ingestInFlight  prometheus.Gauge
	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	degradedQueries prometheus.Counter
	documentsTotal  prometheus.Gauge
}

// New creates the instrument set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casekb",
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Total ingested files by outcome status.",
		},
		[]string{"status"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "casekb",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "File ingestion duration in seconds by outcome status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	ingestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "casekb",
			Subsystem: "ingest",
			Name:      "in_flight",
			Help:      "Number of in-flight ingestion tasks.",
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casekb",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total query requests by mode.",
		},
		[]string{"mode"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "casekb",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query duration in seconds by mode.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"mode"},
	)
	degradedQueries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "casekb",
			Subsystem: "query",
			Name:      "degraded_total",
			Help:      "Queries that fell back to keyword-only results.",
		},
	)
	documentsTotal := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "casekb",
			Subsystem: "store",
			Name:      "documents",
			Help:      "Number of documents in the knowledge store.",
		},
	)

	registry.MustRegister(ingestTotal, ingestDuration, ingestInFlight,
		queryTotal, queryDuration, degradedQueries, documentsTotal)

	return &Metrics{
		registry:        registry,
		ingestTotal:     ingestTotal,
		ingestDuration:  ingestDuration,
		ingestInFlight:  ingestInFlight,
		queryTotal:      queryTotal,
		queryDuration:   queryDuration,
		degradedQueries: degradedQueries,
		documentsTotal:  documentsTotal,
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartIngest marks an ingestion task as in flight.
func (m *Metrics) StartIngest() {
	m.ingestInFlight.Inc()
}

// FinishIngest records one completed ingestion.
func (m *Metrics) FinishIngest(status string, duration time.Duration, err error) {
	m.ingestInFlight.Dec()
	if err != nil {
		status = "error"
	}
	m.ingestTotal.WithLabelValues(status).Inc()
	m.ingestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveQuery records one completed query.
func (m *Metrics) ObserveQuery(mode string, duration time.Duration, degraded bool) {
	m.queryTotal.WithLabelValues(mode).Inc()
	m.queryDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if degraded {
		m.degradedQueries.Inc()
	}
}

// SetDocumentCount reports the current store size.
func (m *Metrics) SetDocumentCount(n int) {
	m.documentsTotal.Set(float64(n))
}
