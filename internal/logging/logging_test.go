package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithSink_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithSink(Options{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("anomaly detected", zap.String("kind", "latency"), zap.Float64("actual", 120))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "debug is below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "anomaly detected", entry["message"])
	assert.Equal(t, "latency", entry["kind"])
	assert.Equal(t, 120.0, entry["actual"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewWithSink_InvalidOptions(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewWithSink(Options{Level: "loud"}, zapcore.AddSync(&buf))
	assert.Error(t, err)

	_, err = NewWithSink(Options{Level: "info", Format: "xml"}, zapcore.AddSync(&buf))
	assert.Error(t, err)
}

func TestNew_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	logger, err := New(Options{Level: "warn", Format: "console", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	logger.Warn("queue full")
	_ = logger.Sync()
	assert.FileExists(t, path)
}
