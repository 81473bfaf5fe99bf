package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Receipt enrichment outcomes.
const (
	EnrichmentParsed  = "parsed"
	EnrichmentFailed  = "failed"
	EnrichmentSkipped = "skipped"
)

// Metrics collects Prometheus metrics for the API.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	enrichmentsTotal  *prometheus.CounterVec
	enrichmentLatency prometheus.Histogram
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartexpense_http_requests_total",
		Help: "Number of HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smartexpense_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	enrichments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartexpense_receipt_enrichments_total",
		Help: "Receipt parser calls by outcome.",
	}, []string{"outcome"})
	enrichLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartexpense_receipt_parse_duration_seconds",
		Help:    "Latency of receipt parser calls.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})
	registry.MustRegister(requests, duration, enrichments, enrichLatency)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		enrichmentsTotal:  enrichments,
		enrichmentLatency: enrichLatency,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveEnrichment records the outcome of one receipt parser call.
func (m *Metrics) ObserveEnrichment(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.enrichmentsTotal.WithLabelValues(outcome).Inc()
	if outcome != EnrichmentSkipped {
		m.enrichmentLatency.Observe(elapsed.Seconds())
	}
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
