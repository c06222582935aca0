package audit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes audit events as structured log entries
type LogrusLogger struct {
	log logrus.FieldLogger
}

// NewLogrusLogger creates an audit logger on top of logger
func NewLogrusLogger(logger logrus.FieldLogger) *LogrusLogger {
	return &LogrusLogger{log: logger.WithField("component", "audit")}
}

// Log writes the event. Failures and denials are logged at warn level.
func (l *LogrusLogger) Log(ctx context.Context, event *AuditEvent) error {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"status":     event.Status,
		"timestamp":  event.Timestamp,
	}
	addField(fields, "subject_id", event.SubjectID)
	addField(fields, "subject_kind", event.SubjectKind)
	addField(fields, "email", event.Email)
	addField(fields, "project_id", event.ProjectID)
	addField(fields, "resource_type", string(event.ResourceType))
	addField(fields, "resource_id", event.ResourceID)
	addField(fields, "ip_address", event.IPAddress)
	addField(fields, "user_agent", event.UserAgent)
	addField(fields, "request_id", event.RequestID)
	addField(fields, "method", event.Method)
	addField(fields, "path", event.Path)
	addField(fields, "error", event.ErrorMessage)
	if event.StatusCode != 0 {
		fields["status_code"] = event.StatusCode
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.log.WithFields(fields)
	message := event.Message
	if message == "" {
		message = string(event.EventType)
	}

	if event.Status == EventStatusSuccess {
		entry.Info(message)
	} else {
		entry.Warn(message)
	}
	return nil
}

// Close is a no-op; the underlying logger is owned by the caller
func (l *LogrusLogger) Close() error {
	return nil
}

func addField(fields logrus.Fields, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
