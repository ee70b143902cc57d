package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/jwebster45206/murder-valley/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter_Production(t *testing.T) {
	var buf bytes.Buffer
	log := SetupWriter(&config.Config{Environment: "production", LogLevel: slog.LevelInfo}, &buf)

	WithError(WithRequestID(log, "req-1"), errors.New("boom")).Info("Board scored", "tier", "warning")
	log.Debug("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Board scored", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "warning", line["tier"])
}

func TestSetupWriter_Development(t *testing.T) {
	var buf bytes.Buffer
	log := SetupWriter(&config.Config{Environment: "development", LogLevel: slog.LevelDebug}, &buf)

	log.Debug("Gesture ignored", "gesture", "drop")
	assert.Contains(t, buf.String(), "msg=\"Gesture ignored\"")
	assert.Contains(t, buf.String(), "gesture=drop")
}
