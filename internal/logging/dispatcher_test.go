package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbuefx/enrichments/internal/dispatcher"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("event queued", "command", ":JOURNAL:TRIGGER:", "depth", 42)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "event queued", entry["message"])
	assert.Equal(t, "dispatcher", entry["component"])
	assert.Equal(t, ":JOURNAL:TRIGGER:", entry["command"])
	assert.Equal(t, float64(42), entry["depth"])
}

func TestDispatcherLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("handler registered", "command", ":JOURNAL:WALK:")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, ":JOURNAL:WALK:", entry["command"])
}

func TestDispatcherLogger_ErrorStringifiesErrors(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("handler failed", "error", errors.New("disk full"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "disk full", entry["error"])
}

func TestDispatcherLogger_DropsDanglingAndNonStringKeys(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "b", "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}

func TestDispatcherLogger_FilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestDispatcherLogger_ImplementsInterface(t *testing.T) {
	var _ dispatcher.Logger = NewDispatcherLogger(zerolog.Nop())
}
