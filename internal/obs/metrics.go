package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for outbound calls.
const (
	OutcomeOK       = "ok"
	OutcomeNetwork  = "network"
	OutcomeClient   = "client_error"
	OutcomeServer   = "server_error"
	OutcomeProtocol = "protocol"
	OutcomeCanceled = "canceled"
)

type Metrics struct {
	registry prometheus.Gatherer

	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	guardDenials   *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asubt_remote_requests_total",
			Help: "Requests sent to remote endpoints.",
		}, []string{"resource", "method", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asubt_remote_request_duration_seconds",
			Help:    "Latency of remote endpoint requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource", "method"}),
		guardDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asubt_route_guard_denials_total",
			Help: "Navigations refused by the route guard.",
		}, []string{"route", "reason"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asubt_report_cache_lookups_total",
			Help: "Report cache lookups.",
		}, []string{"result"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "asubt_shell_in_flight_requests",
			Help: "In-flight shell HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asubt_shell_requests_total",
			Help: "Total number of shell HTTP requests.",
		}, []string{"method", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asubt_shell_request_duration_seconds",
			Help:    "Shell HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		m.remoteRequests, m.remoteDuration, m.guardDenials, m.cacheLookups,
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
	)
	return m
}

func (m *Metrics) ObserveRemote(resource, method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.remoteRequests.WithLabelValues(resource, method, outcome).Inc()
	m.remoteDuration.WithLabelValues(resource, method).Observe(elapsed.Seconds())
}

func (m *Metrics) GuardDenied(route, reason string) {
	if m == nil {
		return
	}
	m.guardDenials.WithLabelValues(route, reason).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument measures shell requests. Paths are not labelled to keep cardinality flat.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
