package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	verificationsTotal *prometheus.CounterVec
	codesMintedTotal   prometheus.Counter
	mintRetriesTotal   prometheus.Counter
}

// NewMetrics initialises the registry and the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_http_requests_total",
		Help: "Number of HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatepass_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_verifications_total",
		Help: "Checkpoint verification outcomes by result and reason.",
	}, []string{"result", "reason"})
	minted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_codes_minted_total",
		Help: "Rotating codes minted.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_code_mint_retries_total",
		Help: "Mint attempts retried because the drawn code was taken.",
	})
	registry.MustRegister(requests, duration, verifications, minted, retries)
	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:      requests,
		requestDuration:    duration,
		verificationsTotal: verifications,
		codesMintedTotal:   minted,
		mintRetriesTotal:   retries,
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

// Verification counts a checkpoint verification outcome. Implements the
// verifier metrics hook; safe on a nil receiver.
func (m *Metrics) Verification(result, reason string) {
	if m == nil {
		return
	}
	m.verificationsTotal.WithLabelValues(result, reason).Inc()
}

// CodeMinted counts a successfully minted rotating code.
func (m *Metrics) CodeMinted() {
	if m == nil {
		return
	}
	m.codesMintedTotal.Inc()
}

// MintRetried counts a draw that collided with a live code.
func (m *Metrics) MintRetried() {
	if m == nil {
		return
	}
	m.mintRetriesTotal.Inc()
}

// Registerer exposes the registry for custom metric registration.
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
