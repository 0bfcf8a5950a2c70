package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the dashboard.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetchTotal      *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	staleDiscards   prometheus.Counter
	controllers     prometheus.Gauge
	overviewLoads   *prometheus.CounterVec
}

// NewMetrics initialises the registry and every dashboard metric.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberdash_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memberdash_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberdash_collection_fetch_total",
		Help: "Remote collection page fetches by outcome.",
	}, []string{"outcome"})
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memberdash_collection_fetch_duration_seconds",
		Help:    "Remote collection page fetch latency by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	stale := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memberdash_list_stale_discards_total",
		Help: "List responses dropped because a newer request had been issued.",
	})
	controllers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memberdash_list_controllers",
		Help: "Live per-session list controllers.",
	})
	overview := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberdash_overview_loads_total",
		Help: "Overview summary loads by source.",
	}, []string{"source"})
	registry.MustRegister(requests, duration, fetches, fetchDuration, stale, controllers, overview)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		fetchTotal:      fetches,
		fetchDuration:   fetchDuration,
		staleDiscards:   stale,
		controllers:     controllers,
		overviewLoads:   overview,
	}
}

// Handler returns the http.Handler serving /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route.
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

// ObserveFetch records one remote collection fetch.
func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveStaleDiscard counts a superseded list response.
func (m *Metrics) ObserveStaleDiscard() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
}

// SetControllers reports the number of live list controllers.
func (m *Metrics) SetControllers(n int) {
	if m == nil {
		return
	}
	m.controllers.Set(float64(n))
}

// ObserveOverviewLoad counts an overview load served from source
// ("cache" or "remote").
func (m *Metrics) ObserveOverviewLoad(source string) {
	if m == nil {
		return
	}
	m.overviewLoads.WithLabelValues(source).Inc()
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
