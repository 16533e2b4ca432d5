package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

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
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}

	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"bogus":   LogLevelInfo,
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(in))
		})
	}
}

func TestTeamLogger_ComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf}).
		WithComponent("team").
		With("team", "research")

	l.Debug("hidden")
	l.Info("team.run.start", "task_id", "t1")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "team.run.start", lines[0]["msg"])
	assert.Equal(t, "team", lines[0]["component"])
	assert.Equal(t, "research", lines[0]["team"])
	assert.Equal(t, "t1", lines[0]["task_id"])
}

func TestHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Output: &buf})

	LogToolCall(l, "terminal", 5*time.Millisecond, false, "boom")
	LogModelCall(l, "openai", "gpt-4o", 12, time.Second, true, "")
	LogTeamRun(l, "research", 2, 4, time.Second, "completed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "tool.call.error", lines[0]["msg"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "model.call", lines[1]["msg"])
	assert.Equal(t, float64(12), lines[1]["token_count"])
	assert.Equal(t, "team.run.complete", lines[2]["msg"])
	assert.Equal(t, "completed", lines[2]["status"])
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, NoOpLogger{}, OrNop(nil))

	l := NewLogger(nil)
	assert.Same(t, l, OrNop(l))
}
