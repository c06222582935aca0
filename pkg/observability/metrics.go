package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthenticationsTotal   *prometheus.CounterVec
	AuthenticationDuration *prometheus.HistogramVec
	AuthorizationsTotal    *prometheus.CounterVec
	LoginsThrottledTotal   prometheus.Counter

	// Key lifecycle metrics
	APIKeysCreatedTotal     prometheus.Counter
	APIKeysDeactivatedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baynext_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baynext_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthenticationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baynext_authentications_total",
				Help: "Authentication attempts by credential method and outcome",
			},
			[]string{"method", "outcome"},
		),
		AuthenticationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baynext_authentication_duration_seconds",
				Help:    "Time spent resolving credentials",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1},
			},
			[]string{"method"},
		),
		AuthorizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baynext_authorizations_total",
				Help: "Project access checks by check kind and outcome",
			},
			[]string{"check", "outcome"},
		),
		LoginsThrottledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "baynext_logins_throttled_total",
				Help: "Login attempts rejected by the throttle",
			},
		),
		APIKeysCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "baynext_api_keys_created_total",
				Help: "API keys created",
			},
		),
		APIKeysDeactivatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baynext_api_keys_deactivated_total",
				Help: "API keys deactivated, by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthenticationsTotal,
		m.AuthenticationDuration,
		m.AuthorizationsTotal,
		m.LoginsThrottledTotal,
		m.APIKeysCreatedTotal,
		m.APIKeysDeactivatedTotal,
	)

	return m
}

// RecordAuthentication counts one gateway decision
func (m *Metrics) RecordAuthentication(method, outcome string, d time.Duration) {
	m.AuthenticationsTotal.WithLabelValues(method, outcome).Inc()
	m.AuthenticationDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordAuthorization counts one project access check
func (m *Metrics) RecordAuthorization(check, outcome string) {
	m.AuthorizationsTotal.WithLabelValues(check, outcome).Inc()
}

// RecordLoginThrottled counts a rejected login attempt
func (m *Metrics) RecordLoginThrottled() {
	m.LoginsThrottledTotal.Inc()
}

// RecordKeyCreated counts a new API key
func (m *Metrics) RecordKeyCreated() {
	m.APIKeysCreatedTotal.Inc()
}

// RecordKeysDeactivated counts keys deactivated manually or by the expiry sweep
func (m *Metrics) RecordKeysDeactivated(reason string, n int64) {
	m.APIKeysDeactivatedTotal.WithLabelValues(reason).Add(float64(n))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments requests, labelling them by mux route template
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// routeTemplate keeps label cardinality bounded: project IDs never become labels
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
