package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agentteam/tool"
)

// Invocation is one recorded Execute call.
type Invocation struct {
	Params      map[string]any
	AgentName   string
	FinalAnswer string
}

// RecordingTool is a tool.Tool returning scripted results and recording
// every invocation. It also implements io.Closer.
type RecordingTool struct {
	name        string
	description string
	stage       tool.Stage
	parameters  map[string]any
	results     []tool.Result
	closeErr    error

	mu     sync.Mutex
	calls  []Invocation
	closed int
}

// ToolBuilder helps construct a RecordingTool with fluent chaining.
// Example:
//
//	tl := NewToolBuilder("search").Returns(tool.Success("hit")).Build()
type ToolBuilder struct {
	t *RecordingTool
}

// NewToolBuilder creates a builder for a pre-process tool with the given name.
func NewToolBuilder(name string) *ToolBuilder {
	return &ToolBuilder{t: &RecordingTool{
		name:        name,
		description: "test tool " + name,
		stage:       tool.PreProcess,
		parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}}
}

// Description overrides the description (chainable).
func (b *ToolBuilder) Description(d string) *ToolBuilder { b.t.description = d; return b }

// PostProcess marks the tool as post-process (chainable).
func (b *ToolBuilder) PostProcess() *ToolBuilder { b.t.stage = tool.PostProcess; return b }

// Parameters sets the parameter schema (chainable).
func (b *ToolBuilder) Parameters(p map[string]any) *ToolBuilder { b.t.parameters = p; return b }

// Returns queues results in call order; the last one repeats (chainable).
func (b *ToolBuilder) Returns(results ...tool.Result) *ToolBuilder {
	b.t.results = append(b.t.results, results...)
	return b
}

// CloseError makes Close fail with err (chainable).
func (b *ToolBuilder) CloseError(err error) *ToolBuilder { b.t.closeErr = err; return b }

// Build returns the configured tool.
func (b *ToolBuilder) Build() *RecordingTool { return b.t }

// Name implements tool.Tool.
func (t *RecordingTool) Name() string { return t.name }

// Description implements tool.Tool.
func (t *RecordingTool) Description() string { return t.description }

// Parameters implements tool.Tool.
func (t *RecordingTool) Parameters() map[string]any { return t.parameters }

// Stage implements tool.Tool.
func (t *RecordingTool) Stage() tool.Stage { return t.stage }

// Execute implements tool.Tool.
func (t *RecordingTool) Execute(_ context.Context, tc *tool.Context, params map[string]any) tool.Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	inv := Invocation{Params: params}
	if tc != nil {
		inv.AgentName = tc.AgentName
		inv.FinalAnswer = tc.FinalAnswer
	}

	t.calls = append(t.calls, inv)

	if len(t.results) == 0 {
		return tool.Success("ok")
	}

	i := len(t.calls) - 1
	if i >= len(t.results) {
		i = len(t.results) - 1
	}

	return t.results[i]
}

// Close implements io.Closer.
func (t *RecordingTool) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed++

	return t.closeErr
}

// Calls returns the recorded invocations.
func (t *RecordingTool) Calls() []Invocation {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Invocation, len(t.calls))
	copy(out, t.calls)

	return out
}

// Closed returns how many times Close was called.
func (t *RecordingTool) Closed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}
