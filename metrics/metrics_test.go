package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(false)

	m.AgentStep("writer")
	m.AgentStep("writer")
	m.ToolCall("terminal", "success", 10*time.Millisecond)
	m.ToolCall("terminal", "error", time.Millisecond)
	m.ModelCall("openai", true, 42)
	m.ModelCall("openai", false, 0)
	m.TeamRun("research", "completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.agentSteps.WithLabelValues("writer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("terminal", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("openai", "error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.modelTokens.WithLabelValues("openai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.teamRuns.WithLabelValues("research", "completed")))

	expected := `
# HELP agentteam_team_runs_total Team runs, by team and final status.
# TYPE agentteam_team_runs_total counter
agentteam_team_runs_total{status="completed",team="research"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "agentteam_team_runs_total"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AgentStep("a")
		m.ToolCall("t", "success", 0)
		m.ModelCall("p", true, 1)
		m.TeamRun("team", "failed")
		assert.NoError(t, m.WriteTextfile("ignored"))
	})
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New(true)
	m.TeamRun("research", "failed")

	path := filepath.Join(t.TempDir(), "agentteam.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `agentteam_team_runs_total{status="failed",team="research"} 1`)
	assert.Contains(t, string(data), "go_goroutines")
}
