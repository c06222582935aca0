package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "json", &buf)

	logger.WithField("project_id", "p1").Debug("checked access")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "checked access", entry["msg"])
	assert.Equal(t, "p1", entry["project_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "text", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
}

func TestFromContext(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSubject(ctx, "u1")

	FromContext(ctx).Info("hello")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, "u1", entry.Data["subject"])
	assert.NotContains(t, entry.Data, "trace_id")
}

func TestContextAccessors_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetSubject(ctx))
	assert.Equal(t, logrus.StandardLogger(), GetLogger(ctx))
}
