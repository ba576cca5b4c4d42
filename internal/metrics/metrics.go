// Package metrics holds the Prometheus collectors of the API and the export
// worker. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "receivables"

// Export outcomes.
const (
	ExportOK    = "ok"
	ExportError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	ledgerMutations  *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	rateLimitDenied  prometheus.Counter
	exportRuns       *prometheus.CounterVec
	exportDuration   prometheus.Histogram
	exportLastSynced prometheus.Gauge
}

// New creates the collectors on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
		ledgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_mutations_total",
			Help:      "Receivable and payment writes by entity and operation.",
		}, []string{"entity", "op"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_published_total",
			Help:      "Ledger events handed to the broker by outcome.",
		}, []string{"outcome"}),
		rateLimitDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_denied_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		exportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_export_runs_total",
			Help:      "Spreadsheet export runs by outcome.",
		}, []string{"outcome"}),
		exportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sheets_export_duration_seconds",
			Help:      "Spreadsheet export latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		exportLastSynced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sheets_export_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful spreadsheet export.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.ledgerMutations,
		m.eventsPublished,
		m.rateLimitDenied,
		m.exportRuns,
		m.exportDuration,
		m.exportLastSynced,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordMutation(entity, op string) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(entity, op).Inc()
}

func (m *Metrics) RecordEventPublish(err error) {
	if m == nil {
		return
	}
	outcome := ExportOK
	if err != nil {
		outcome = ExportError
	}
	m.eventsPublished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitDenied.Inc()
}

func (m *Metrics) RecordExport(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.exportDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.exportRuns.WithLabelValues(ExportError).Inc()
		return
	}
	m.exportRuns.WithLabelValues(ExportOK).Inc()
	m.exportLastSynced.SetToCurrentTime()
}
