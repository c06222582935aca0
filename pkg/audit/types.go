package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin              EventType = "auth.login"
	EventTypeAuthLoginFailed        EventType = "auth.login_failed"
	EventTypeAuthLoginThrottled     EventType = "auth.login_throttled"
	EventTypeAuthAuthenticateFailed EventType = "auth.authenticate_failed"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// API key lifecycle events
	EventTypeKeyCreate      EventType = "key.create"
	EventTypeKeyDeactivate  EventType = "key.deactivate"
	EventTypeKeyDelete      EventType = "key.delete"
	EventTypeKeyExpirySweep EventType = "key.expire_sweep"

	// Project lifecycle events
	EventTypeProjectCreate EventType = "project.create"
	EventTypeProjectDelete EventType = "project.delete"

	// Project membership events
	EventTypeMemberAdd    EventType = "member.add"
	EventTypeMemberRemove EventType = "member.remove"

	// Generic request event written by the HTTP middleware
	EventTypeHTTPRequest EventType = "http.request"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeProject ResourceType = "project"
	ResourceTypeAPIKey  ResourceType = "api_key"
	ResourceTypeUser    ResourceType = "user"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	SubjectID   string `json:"subject_id,omitempty"`
	SubjectKind string `json:"subject_kind,omitempty"`
	Email       string `json:"email,omitempty"`

	// Resource information
	ProjectID    string       `json:"project_id,omitempty"`
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*AuditEvent, error) {
	var event AuditEvent
	err := json.Unmarshal(data, &event)
	return &event, err
}
