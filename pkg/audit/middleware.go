package audit

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Middleware provides HTTP middleware for audit logging
type Middleware struct {
	logger         Logger
	log            logrus.FieldLogger
	logAllRequests bool // If false, only log mutations, errors and auth endpoints
}

// NewMiddleware creates a new audit middleware. errLog receives audit write failures.
func NewMiddleware(logger Logger, logAllRequests bool, errLog logrus.FieldLogger) *Middleware {
	if errLog == nil {
		errLog = logrus.StandardLogger()
	}
	return &Middleware{
		logger:         logger,
		log:            errLog,
		logAllRequests: logAllRequests,
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Handler wraps an HTTP handler with audit logging. The audit logger is made
// available to handlers through FromContext.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ctx := WithLogger(r.Context(), m.logger)
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		if !m.logAllRequests && !m.shouldLogRequest(r, wrapped.statusCode) {
			return
		}

		status := EventStatusSuccess
		switch {
		case wrapped.statusCode == http.StatusForbidden:
			status = EventStatusDenied
		case wrapped.statusCode >= 400:
			status = EventStatusFailure
		}

		event := NewEvent(ctx, r, EventTypeHTTPRequest, status)
		event.StatusCode = wrapped.statusCode
		event.Metadata["duration_ms"] = time.Since(startTime).Milliseconds()

		if err := m.logger.Log(ctx, event); err != nil {
			m.log.WithError(err).Warn("failed to write audit event")
		}
	})
}

// shouldLogRequest determines if a request should be logged
func (m *Middleware) shouldLogRequest(r *http.Request, statusCode int) bool {
	// Always log mutations (POST, PUT, PATCH, DELETE)
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions {
		return true
	}

	// Always log errors and denials
	if statusCode >= 400 {
		return true
	}

	return isSensitiveEndpoint(r.URL.Path)
}

// isSensitiveEndpoint checks if an endpoint is considered sensitive
func isSensitiveEndpoint(path string) bool {
	return strings.HasPrefix(path, "/v1/auth") || strings.Contains(path, "/keys")
}
