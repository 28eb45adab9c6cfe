package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestContextLogger_Attributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf}).
		WithComponent("dispatch").
		WithSession("s1", "u1").
		WithContext("run_id", "r1")

	l.Info("dispatch.turn.start", "message_len", 5)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "dispatch.turn.start", lines[0]["msg"])
	assert.Equal(t, "dispatch", lines[0]["component"])
	assert.Equal(t, "s1", lines[0]["session_id"])
	assert.Equal(t, "u1", lines[0]["user_id"])
	assert.Equal(t, "r1", lines[0]["run_id"])
	assert.EqualValues(t, 5, lines[0]["message_len"])
}

func TestContextLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestContextLogger_LevelVar(t *testing.T) {
	var (
		buf bytes.Buffer
		lv  slog.LevelVar
	)
	lv.Set(LogLevelWarn.Slog())
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf, LevelVar: &lv})

	l.Info("hidden")
	lv.Set(LogLevelDebug.Slog())
	l.Debug("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestContextLogger_WithDoesNotMutate(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})
	_ = base.WithContext("k", "v")

	base.Info("plain")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["k"]
	assert.False(t, ok)
}

func TestLogTurnHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	LogTurn(l, "overloaded", true, "session_id", "s1")
	LogStageTransition(l, "none", "campaign_brief", "business_profile")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "overloaded", lines[0]["outcome"])
	assert.Equal(t, "session.stage.transition", lines[1]["msg"])
	assert.Equal(t, "campaign_brief", lines[1]["to"])

	// Plain loggers fall back without panicking.
	LogTurn(NoOpLogger{}, "answered", false)
	LogStageTransition(NoOpLogger{}, "a", "b", "c")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("whatever"))
}
