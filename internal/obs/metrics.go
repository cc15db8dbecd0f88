package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics shared by the transport layer.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Authorization and credential metrics. Reason labels carry the internal
// gate name, never anything echoed to callers.
var (
	authzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization guard outcomes by failing gate.",
		},
		[]string{"gate", "allowed"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Password login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	passwordHashDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "password_hash_seconds",
		Help:    "Wall time spent computing password hashes.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		authzDecisions, loginAttempts, passwordHashDuration,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDecision records a guard outcome. gate names the failing gate, or
// "allowed" for a pass.
func ObserveDecision(gate string, allowed bool) {
	authzDecisions.WithLabelValues(gate, strconv.FormatBool(allowed)).Inc()
}

// ObserveLogin records a login attempt outcome (success, invalid, locked, error).
func ObserveLogin(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveHash records the duration of one password hash computation.
func ObserveHash(d time.Duration) {
	passwordHashDuration.Observe(d.Seconds())
}

// Instrument wraps a handler with request counting, latency and in-flight gauges.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
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
