package agent

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/internal/testutil"
	"github.com/hupe1980/agentteam/metrics"
	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/tool"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }

func newTeam(maxSteps int, m model.Client, agents ...*ReasoningAgent) *TeamContext {
	tc := NewTeamContext("research", "A research team", "be brief", maxSteps, m)
	tc.AddAgent(agents...)
	tc.Reset("find facts")

	return tc
}

func logged(fns ...func(o *Options)) func(o *Options) {
	return func(o *Options) {
		o.OutputMode = OutputLogger
		o.Now = fixedNow
		for _, fn := range fns {
			fn(o)
		}
	}
}

func withTools(tools ...tool.Tool) func(o *Options) {
	return func(o *Options) { o.Tools = tools }
}

func actionTypes(actions []core.AgentAction) []core.ActionType {
	out := make([]core.ActionType, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Type)
	}
	return out
}

// -------------------- Loop Tests --------------------

func TestExecute_FinalAnswerOnFirstStep(t *testing.T) {
	m := model.NewMockClient("mock").AddReply(testutil.Answer("easy", "42"))
	a := NewReasoningAgent("solver", logged(func(o *Options) {
		o.SystemPrompt = "You solve."
		o.Description = "solves things"
	}))
	tc := newTeam(10, m, a)
	a.SetSubtask("compute the answer")

	res := a.Execute(context.Background())

	assert.False(t, res.IsError())
	assert.Equal(t, "42", res.FinalAnswer)
	assert.Equal(t, 1, res.StepCount)
	assert.Equal(t, 1, tc.Steps.Count())
	assert.Equal(t, []PeerOutput{{AgentName: "solver", Output: "42"}}, tc.Outputs())
	assert.Equal(t, []core.ActionType{core.ActionThinking, core.ActionFinalAnswer}, actionTypes(a.Actions()))

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].Stream)
	assert.False(t, reqs[0].JSONFormat)
	assert.Zero(t, reqs[0].Temperature)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, model.SystemMessage("You solve."), reqs[0].Messages[0])

	prompt := reqs[0].Messages[1].Content
	assert.Contains(t, prompt, "Your role: solver\nYour role description: solves things")
	assert.Contains(t, prompt, "You are handling the subtask: compute the answer, as a member of the research team.")
	assert.Contains(t, prompt, "Current time: 2024-05-01 12:30:00\nTeam description: A research team")
	assert.Contains(t, prompt, "## Your sub task\ncompute the answer")
	assert.True(t, strings.HasSuffix(prompt, "## Historical steps:\n"))
}

func TestExecute_ToolThenAnswer(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Returns(tool.Success(map[string]any{"hits": 3})).Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("search first", "lookup", `{"q": "go"}`),
		testutil.Answer("done", "found 3"),
	)
	a := NewReasoningAgent("searcher", logged(withTools(lookup)))
	tc := newTeam(10, m, a)

	res := a.Execute(context.Background())

	require.False(t, res.IsError())
	assert.Equal(t, "found 3", res.FinalAnswer)
	assert.Equal(t, 2, res.StepCount)
	assert.Equal(t, 2, tc.Steps.Count())

	calls := lookup.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"q": "go"}, calls[0].Params)
	assert.Equal(t, "searcher", calls[0].AgentName)

	history := a.History()
	require.Len(t, history, 1)
	assert.Equal(t, "search first", history[0].Thought)
	assert.Equal(t, "lookup", history[0].Action)
	require.NotNil(t, history[0].Observation)
	assert.Equal(t, tool.StatusSuccess, history[0].Observation.Status)
	assert.Equal(t, map[string]any{"hits": 3}, history[0].Observation.Result)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[0].Messages[0].Content, `lookup: test tool lookup (parameters: {"properties":{},"type":"object"})`)
	second := reqs[1].Messages[0].Content
	assert.Contains(t, second, `"action": "lookup"`)
	assert.Contains(t, second, `"hits": 3`)

	actions := a.Actions()
	assert.Equal(t, []core.ActionType{core.ActionThinking, core.ActionToolUse, core.ActionThinking, core.ActionFinalAnswer}, actionTypes(actions))
	require.NotNil(t, actions[1].ToolResult)
	assert.Equal(t, "lookup", actions[1].ToolResult.ToolName)
	assert.Equal(t, core.ToolStatusSuccess, actions[1].ToolResult.Status)
	assert.Equal(t, map[string]any{"q": "go"}, actions[1].ToolResult.InputParams)
}

func TestExecute_UnavailableToolsBecomeObservations(t *testing.T) {
	saver := testutil.NewToolBuilder("save").PostProcess().Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("try saving", "save", "{}"),
		testutil.Call("try another", "nope", "{}"),
		testutil.Answer("give up", "final text"),
	)
	a := NewReasoningAgent("writer", logged(withTools(saver)))
	newTeam(10, m, a)

	res := a.Execute(context.Background())

	require.False(t, res.IsError())
	assert.Equal(t, 3, res.StepCount)

	history := a.History()
	require.Len(t, history, 2)
	for _, h := range history {
		require.NotNil(t, h.Observation)
		assert.Equal(t, tool.StatusError, h.Observation.Status)
		assert.Contains(t, h.Observation.Result, "is not available")
	}

	calls := saver.Calls()
	require.Len(t, calls, 1, "post-process tools only run after the final answer")
	assert.Equal(t, map[string]any{}, calls[0].Params)
	assert.Equal(t, "final text", calls[0].FinalAnswer)

	assert.NotContains(t, m.Requests()[0].Messages[0].Content, "save:")
}

func TestExecute_InvalidActionInput(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("try", "lookup", "not json"),
		testutil.Answer("ok", "done"),
	)
	a := NewReasoningAgent("a", logged(withTools(lookup)))
	newTeam(10, m, a)

	res := a.Execute(context.Background())

	require.False(t, res.IsError())
	assert.Empty(t, lookup.Calls())

	history := a.History()
	require.Len(t, history, 1)
	assert.Equal(t, "not json", history[0].ActionInput)
	assert.Equal(t, "action_input must be a JSON object", history[0].Observation.Result)
}

func TestExecute_MissingActionInputMeansNoParams(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Build()
	m := model.NewMockClient("mock").AddReply(
		"<thought>now</thought><action>lookup</action>",
		testutil.Answer("ok", "done"),
	)
	a := NewReasoningAgent("a", logged(withTools(lookup)))
	newTeam(10, m, a)

	a.Execute(context.Background())

	calls := lookup.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{}, calls[0].Params)
}

func TestExecute_ToolFailureIsSoft(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Returns(tool.Failure("quota exceeded")).Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("try", "lookup", "{}"),
		testutil.Answer("fallback", "from memory"),
	)
	a := NewReasoningAgent("a", logged(withTools(lookup)))
	newTeam(10, m, a)

	res := a.Execute(context.Background())

	require.False(t, res.IsError())
	assert.Equal(t, "from memory", res.FinalAnswer)
	assert.Equal(t, tool.StatusError, a.History()[0].Observation.Status)
	assert.Equal(t, "quota exceeded", a.History()[0].Observation.Result)
	assert.Contains(t, m.Requests()[1].Messages[0].Content, "quota exceeded")
}

func TestExecute_NoActionEndsLoop(t *testing.T) {
	m := model.NewMockClient("mock").AddReply("<thought>hmm</thought>", testutil.Answer("x", "unused"))
	a := NewReasoningAgent("a", logged())
	tc := newTeam(10, m, a)

	res := a.Execute(context.Background())

	assert.False(t, res.IsError())
	assert.Empty(t, res.FinalAnswer)
	assert.Equal(t, 1, res.StepCount)
	assert.Empty(t, tc.Outputs())
	assert.Equal(t, 1, m.Pending())
}

// -------------------- Budget Tests --------------------

func TestExecute_TeamBudgetStopsBeforeStep(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("one", "lookup", "{}"),
		testutil.Call("two", "lookup", "{}"),
	)
	a := NewReasoningAgent("a", logged(withTools(lookup)))
	tc := newTeam(1, m, a)

	res := a.Execute(context.Background())

	assert.True(t, res.IsError())
	assert.Equal(t, "Team's max steps reached", res.ErrorMessage)
	assert.Equal(t, 1, res.StepCount)
	assert.Equal(t, 1, tc.Steps.Count())
	assert.Equal(t, 1, m.Pending())
}

func TestExecute_TeamBudgetIsShared(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("a1", "lookup", "{}"),
		testutil.Answer("a2", "first done"),
		testutil.Call("b1", "lookup", "{}"),
		testutil.Call("b2", "lookup", "{}"),
	)
	first := NewReasoningAgent("first", logged(withTools(lookup)))
	second := NewReasoningAgent("second", logged(withTools(lookup)))
	tc := newTeam(3, m, first, second)

	require.False(t, first.Execute(context.Background()).IsError())
	assert.Equal(t, 2, tc.Steps.Count())

	res := second.Execute(context.Background())
	assert.True(t, res.IsError())
	assert.Equal(t, 1, res.StepCount)
	assert.Equal(t, 3, tc.Steps.Count())
	assert.Equal(t, 1, m.Pending())
}

func TestExecute_AgentStepCap(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("1", "lookup", "{}"),
		testutil.Call("2", "lookup", "{}"),
		testutil.Call("3", "lookup", "{}"),
	)
	a := NewReasoningAgent("a", logged(withTools(lookup), func(o *Options) { o.MaxSteps = 2 }))
	tc := newTeam(10, m, a)

	res := a.Execute(context.Background())

	assert.False(t, res.IsError())
	assert.Empty(t, res.FinalAnswer)
	assert.Equal(t, 3, res.StepCount, "reported count is the last step index plus one")
	assert.Equal(t, 2, tc.Steps.Count())
	assert.Len(t, lookup.Calls(), 2)
}

// -------------------- Failure Tests --------------------

func TestExecute_ModelErrorAborts(t *testing.T) {
	m := model.NewMockClient("mock").AddResponse(model.Failed(401, ""))
	a := NewReasoningAgent("a", logged())
	tc := newTeam(10, m, a)

	res := a.Execute(context.Background())

	assert.True(t, res.IsError())
	assert.Contains(t, res.ErrorMessage, "Authentication error")
	assert.Contains(t, res.ErrorMessage, "Status code: 401")
	assert.Equal(t, 0, res.StepCount)
	assert.Equal(t, 1, tc.Steps.Count())
}

func TestExecute_Preconditions(t *testing.T) {
	t.Run("detached", func(t *testing.T) {
		res := NewReasoningAgent("a").Execute(context.Background())
		assert.True(t, res.IsError())
	})

	t.Run("no model", func(t *testing.T) {
		a := NewReasoningAgent("a", logged())
		newTeam(10, nil, a)
		assert.Equal(t, "no model configured", a.Execute(context.Background()).ErrorMessage)
	})

	t.Run("cancelled", func(t *testing.T) {
		m := model.NewMockClient("mock").AddReply(testutil.Answer("x", "y"))
		a := NewReasoningAgent("a", logged())
		tc := newTeam(10, m, a)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := a.Execute(ctx)
		assert.True(t, res.IsError())
		assert.Equal(t, 0, tc.Steps.Count())
	})
}

// -------------------- Print Mode Tests --------------------

func TestExecute_PrintModeStreams(t *testing.T) {
	var buf bytes.Buffer

	lookup := testutil.NewToolBuilder("lookup").Build()
	saver := testutil.NewToolBuilder("save").PostProcess().Returns(tool.Failure("disk full")).Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("search first", "lookup", `{"q":"go"}`),
		testutil.Answer("wrap up", "All done"),
	)
	a := NewReasoningAgent("a", func(o *Options) {
		o.Output = &buf
		o.Tools = []tool.Tool{lookup, saver}
	})
	newTeam(10, m, a)

	res := a.Execute(context.Background())
	require.False(t, res.IsError())

	out := buf.String()
	assert.Contains(t, out, "\nStep 1:\n[THINK] search first")
	assert.Contains(t, out, `[TOOL] lookup: {"q":"go"}`)
	assert.Contains(t, out, "\nStep 2:\n[THINK] wrap up")
	assert.Contains(t, out, "[RESPONSE] All done")
	assert.Contains(t, out, `[TOOL] save: {"message":"disk full","status":"error"}`)

	for _, req := range m.Requests() {
		assert.True(t, req.Stream)
	}
}

func TestExecute_StreamErrorAborts(t *testing.T) {
	m := model.NewMockClient("mock").AddResponse(model.Failed(500, "boom"))
	a := NewReasoningAgent("a", func(o *Options) { o.Output = &bytes.Buffer{} })
	newTeam(10, m, a)

	res := a.Execute(context.Background())

	assert.True(t, res.IsError())
	assert.Equal(t, "API error: boom (Status code: 500)", res.ErrorMessage)
}

// -------------------- Prompt Tests --------------------

func TestExecute_ExtDataAndPeerOutputsReachPrompt(t *testing.T) {
	browse := testutil.NewToolBuilder("browse").Returns(tool.Result{
		Status:  tool.StatusSuccess,
		Result:  "page",
		ExtData: "## Page notes\nlogin required",
	}).Build()
	m := model.NewMockClient("mock").AddReply(
		testutil.Call("open", "browse", "{}"),
		testutil.Answer("ok", "done"),
	)
	a := NewReasoningAgent("a", logged(withTools(browse)))
	tc := newTeam(10, m, a)
	tc.AddOutput("writer", "draft")

	a.Execute(context.Background())

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.NotContains(t, reqs[0].Messages[0].Content, "## Page notes")
	assert.Contains(t, reqs[1].Messages[0].Content, "## Page notes\nlogin required")
	assert.Contains(t, reqs[0].Messages[0].Content, "## Other agents output:\nmember name: writer\noutput content: draft\n\n")
}

func TestExecute_ObservationTruncation(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Returns(tool.Success(strings.Repeat("x", 50))).Build()
	m := model.NewMockClient("mock").AddReply(testutil.Call("t", "lookup", "{}"), testutil.Answer("t", "a"))
	a := NewReasoningAgent("a", logged(withTools(lookup), func(o *Options) { o.MaxObservationChars = 10 }))
	newTeam(10, m, a)

	a.Execute(context.Background())

	assert.Equal(t, "xxxxxxxxxx\n... (truncated)", a.History()[0].Observation.Result)
}

func TestExecute_HistoryWindow(t *testing.T) {
	lookup := testutil.NewToolBuilder("lookup").Build()
	m := model.NewMockClient("mock")
	for i := 0; i < 4; i++ {
		m.AddReply(testutil.Call("again", "lookup", "{}"))
	}
	m.AddReply(testutil.Answer("t", "a"))

	a := NewReasoningAgent("a", logged(withTools(lookup), func(o *Options) { o.HistoryWindow = 2 }))
	newTeam(10, m, a)

	a.Execute(context.Background())

	reqs := m.Requests()
	require.Len(t, reqs, 5)
	assert.Len(t, a.History(), 4)
	assert.Equal(t, 2, strings.Count(reqs[4].Messages[0].Content, `"action": "lookup"`))
}

// -------------------- Metrics Tests --------------------

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, mt := range f.GetMetric() {
			total += mt.GetCounter().GetValue()
		}
	}

	return total
}

func TestExecute_RecordsMetrics(t *testing.T) {
	reg := metrics.New(false)
	lookup := testutil.NewToolBuilder("lookup").Build()
	m := model.NewMockClient("mock").AddReply(testutil.Call("t", "lookup", "{}"), testutil.Answer("t", "a"))
	a := NewReasoningAgent("a", logged(withTools(lookup), func(o *Options) {
		o.Metrics = reg
		o.TokenCounter = func(string, string) int { return 5 }
	}))
	newTeam(10, m, a)

	a.Execute(context.Background())

	assert.Equal(t, 2.0, counterValue(t, reg, "agentteam_agent_steps_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "agentteam_tool_calls_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "agentteam_model_calls_total"))
	assert.Equal(t, 10.0, counterValue(t, reg, "agentteam_model_tokens_total"))
}
