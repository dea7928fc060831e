package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "info")

	log.Info("load assigned", "load_id", "abc")
	log.Debug("hidden")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "load assigned", record["msg"])
	assert.Equal(t, "abc", record["load_id"])
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pretty", "warn").With("component", "router").WithGroup("req")

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("slow request", "path", "/api/admin/loads")
	out := buf.String()
	assert.Contains(t, out, "slow request")
	assert.Contains(t, out, "component")
	assert.Contains(t, out, "req.path")
	assert.Contains(t, out, "/api/admin/loads")
}
