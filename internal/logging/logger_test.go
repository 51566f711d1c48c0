package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"pkce-relay/internal/config"
	"pkce-relay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_JSONFormatRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestNew_StackTracesOnErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "info", Format: "text", StackTraces: true}, &buf)

	logger.Info("plain")
	assert.NotContains(t, buf.String(), "stack=")

	logger.Error("failure")
	assert.Contains(t, buf.String(), "stack=")
}

func TestMultiHandler_FansOutToEveryHandler(t *testing.T) {
	first := testutil.NewTestLogHandler()
	second := testutil.NewTestLogHandler()

	logger := slog.New(NewMultiHandler(first, second)).With("component", "test")
	logger.Info("hello")

	assert.True(t, first.ContainsMessage(slog.LevelInfo, "hello"))
	assert.True(t, second.ContainsMessage(slog.LevelInfo, "hello"))
}
