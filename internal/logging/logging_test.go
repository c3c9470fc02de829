package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "production", "warn")

	logger.Info("dropped")
	logger.Warn("kept", "session_id", "s1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "s1", entry["session_id"])
}

func TestNewDevLogsText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "dev", "debug").Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestContextLogger(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	logger := slog.Default()
	ctx := ContextWithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	assert.Equal(t, context.Background(), ContextWithLogger(context.Background(), nil))
}
