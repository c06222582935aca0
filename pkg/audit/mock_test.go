package audit

import (
	"context"
	"errors"
	"sync"
)

// mockLogger records events (thread-safe for async operations)
type mockLogger struct {
	mu     sync.Mutex
	events []*AuditEvent
	err    error
	closed bool
}

func (m *mockLogger) Log(ctx context.Context, event *AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetEvents returns a copy of events
func (m *mockLogger) GetEvents() []*AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*AuditEvent, len(m.events))
	copy(result, m.events)
	return result
}

var errWrite = errors.New("write failed")
