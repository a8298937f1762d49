package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/paul/notecache/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("whatever"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(New(config.LoggingConfig{Level: "info", Format: "json"}, &buf), "cache")

	logger.Debug("hidden")
	logger.Info("consumed", "kind", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "consumed", line["msg"])
	assert.Equal(t, "cache", line["component"])
	assert.Equal(t, float64(1), line["kind"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(config.LoggingConfig{Level: "debug", Format: "text"}, &buf).Debug("pruned", "count", 3)

	assert.Contains(t, buf.String(), "msg=pruned")
	assert.Contains(t, buf.String(), "count=3")
}
