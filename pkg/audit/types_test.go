package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditEvent_ToJSON(t *testing.T) {
	event := &AuditEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    EventTypeKeyCreate,
		Status:       EventStatusSuccess,
		SubjectID:    "user-1",
		SubjectKind:  "user",
		ProjectID:    "proj-1",
		ResourceType: ResourceTypeAPIKey,
		ResourceID:   "key-1",
		IPAddress:    "192.168.1.1",
		Message:      "API key created",
		Metadata: map[string]interface{}{
			"name": "ci",
		},
	}

	jsonData, err := event.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"event_type":"key.create"`)
	assert.NotContains(t, string(jsonData), "error_message")

	parsed, err := FromJSON(jsonData)
	require.NoError(t, err)
	assert.Equal(t, event.EventType, parsed.EventType)
	assert.Equal(t, event.ResourceID, parsed.ResourceID)
	assert.Equal(t, "ci", parsed.Metadata["name"])
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte("{not json"))
	assert.Error(t, err)
}
