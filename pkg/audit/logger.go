package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/baynext/baynext/pkg/contextkeys"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/observability"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// contextKey is the type for context keys
type contextKey string

// AuditLoggerKey is the context key for the audit logger
const AuditLoggerKey contextKey = "audit_logger"

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(AuditLoggerKey).(Logger); ok {
		return logger
	}
	// Return a no-op logger if none is set
	return noOpLogger{}
}

// NoOp returns a logger that drops every event
func NoOp() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }
func (noOpLogger) Close() error                                     { return nil }

// NewEvent creates an event with the request context filled in. r may be nil.
func NewEvent(ctx context.Context, r *http.Request, eventType EventType, status EventStatus) *AuditEvent {
	event := &AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: observability.GetRequestID(ctx),
		Metadata:  make(map[string]interface{}),
	}

	if principal, ok := contextkeys.GetPrincipal(ctx); ok {
		event.SubjectID = principal.SubjectID()
		event.SubjectKind = string(principal.Kind)
		if principal.IsUser() {
			event.Email = principal.User.Email
		}
	}
	if project, ok := contextkeys.GetProject(ctx); ok {
		event.ProjectID = project.ID
	}

	if r != nil {
		event.IPAddress = httputil.ClientIP(r)
		event.UserAgent = r.UserAgent()
		event.Method = r.Method
		event.Path = r.URL.Path
	}

	return event
}

// LogSuccess logs a successful event against a resource
func LogSuccess(ctx context.Context, r *http.Request, eventType EventType, resourceType ResourceType, resourceID, message string) error {
	event := NewEvent(ctx, r, eventType, EventStatusSuccess)
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message
	return FromContext(ctx).Log(ctx, event)
}

// LogFailure logs a failed event with an error
func LogFailure(ctx context.Context, r *http.Request, eventType EventType, message string, err error) error {
	event := NewEvent(ctx, r, eventType, EventStatusFailure)
	event.Message = message
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	return FromContext(ctx).Log(ctx, event)
}

// LogDenied logs an access denied event
func LogDenied(ctx context.Context, r *http.Request, resourceType ResourceType, resourceID string, reason error) error {
	event := NewEvent(ctx, r, EventTypeAuthzAccessDenied, EventStatusDenied)
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = fmt.Sprintf("Access denied: %v", reason)
	return FromContext(ctx).Log(ctx, event)
}
