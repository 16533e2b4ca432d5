// Package metrics records agent team activity as Prometheus metrics on a
// private registry. All methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "agentteam"

// Metrics holds the collectors of one runtime.
type Metrics struct {
	Registry *prometheus.Registry

	agentSteps   *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	modelCalls   *prometheus.CounterVec
	modelTokens  *prometheus.CounterVec
	teamRuns     *prometheus.CounterVec
}

// New creates and registers the collectors. WithProcess also registers the
// Go runtime and process collectors.
func New(withProcess bool) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		agentSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_steps_total",
			Help:      "Reasoning steps taken, by agent.",
		}, []string{"agent"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions, by tool and status.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model requests, by provider and status.",
		}, []string{"provider", "status"}),
		modelTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Tokens reported or estimated for model requests, by provider.",
		}, []string{"provider"}),
		teamRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_runs_total",
			Help:      "Team runs, by team and final status.",
		}, []string{"team", "status"}),
	}

	reg.MustRegister(m.agentSteps, m.toolCalls, m.toolDuration, m.modelCalls, m.modelTokens, m.teamRuns)

	if withProcess {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return m
}

// AgentStep counts one reasoning step.
func (m *Metrics) AgentStep(agent string) {
	if m == nil {
		return
	}
	m.agentSteps.WithLabelValues(agent).Inc()
}

// ToolCall records one tool execution.
func (m *Metrics) ToolCall(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ModelCall records one model request.
func (m *Metrics) ModelCall(provider string, success bool, tokens int) {
	if m == nil {
		return
	}

	status := "success"
	if !success {
		status = "error"
	}

	m.modelCalls.WithLabelValues(provider, status).Inc()

	if tokens > 0 {
		m.modelTokens.WithLabelValues(provider).Add(float64(tokens))
	}
}

// TeamRun records a finished team run.
func (m *Metrics) TeamRun(team, status string) {
	if m == nil {
		return
	}
	m.teamRuns.WithLabelValues(team, status).Inc()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
