package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/metrics"
	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/parser"
	"github.com/hupe1980/agentteam/tool"
)

const (
	// DefaultHistoryWindow is how many history entries a prompt shows.
	DefaultHistoryWindow = 10
	// DefaultMaxObservationChars caps a tool observation in the history.
	DefaultMaxObservationChars = 20000

	truncatedSuffix = "\n... (truncated)"

	teamBudgetMessage = "Team's max steps reached"
	noActionMessage   = "No action error, end step"
)

// Step is one entry of an agent's action history, as shown to the model.
type Step struct {
	Thought     string       `json:"thought,omitempty"`
	Action      string       `json:"action"`
	ActionInput any          `json:"action_input,omitempty"`
	Observation *Observation `json:"observation,omitempty"`
}

// Observation is the outcome of an action.
type Observation struct {
	Status tool.Status `json:"status"`
	Result any         `json:"result"`
}

// Options configures a ReasoningAgent.
//
// Use functional options with NewReasoningAgent to override defaults.
type Options struct {
	Description  string
	SystemPrompt string
	Tools        []tool.Tool
	// MaxSteps caps this agent's own loop. <= 0 leaves only the team budget.
	MaxSteps int
	// Model overrides the team model for the reasoning loop.
	Model      model.Client
	OutputMode OutputMode
	// Output receives the console rendering in print mode.
	Output  io.Writer
	Logger  logging.Logger
	Metrics *metrics.Metrics
	// HistoryWindow is the number of recent history entries in each prompt.
	HistoryWindow       int
	MaxObservationChars int
	// TokenCounter estimates tokens when a provider reports no usage.
	TokenCounter func(model, text string) int
	Now          func() time.Time
}

// ReasoningAgent is a team member that works its subtask in a ReAct loop:
// each step sends the role prompt plus recent history to the model, parses
// the tagged reply and either calls a tool, finishes with a final answer or
// stops.
//
// A ReasoningAgent is attached to a TeamContext with TeamContext.AddAgent
// before it can execute. It is not safe for concurrent use.
type ReasoningAgent struct {
	id           string
	name         string
	description  string
	systemPrompt string
	tools        []tool.Tool
	maxSteps     int
	model        model.Client
	outputMode   OutputMode
	out          io.Writer
	logger       logging.Logger
	metrics      *metrics.Metrics
	window       int
	maxObs       int
	countTokens  func(model, text string) int
	now          func() time.Time

	team *TeamContext

	subtask     string
	history     []Step
	extData     string
	finalAnswer string
	actions     []core.AgentAction
}

// NewReasoningAgent creates an agent with print output, a ten entry history
// window and a 20000 character observation cap.
func NewReasoningAgent(name string, optFns ...func(o *Options)) *ReasoningAgent {
	opts := Options{
		OutputMode:          OutputPrint,
		Output:              os.Stdout,
		HistoryWindow:       DefaultHistoryWindow,
		MaxObservationChars: DefaultMaxObservationChars,
		TokenCounter:        util.CountTokens,
		Now:                 time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Output == nil {
		opts.Output = io.Discard
	}

	return &ReasoningAgent{
		id:           core.NewID(),
		name:         name,
		description:  opts.Description,
		systemPrompt: opts.SystemPrompt,
		tools:        opts.Tools,
		maxSteps:     opts.MaxSteps,
		model:        opts.Model,
		outputMode:   opts.OutputMode,
		out:          opts.Output,
		logger:       logging.OrNop(opts.Logger),
		metrics:      opts.Metrics,
		window:       opts.HistoryWindow,
		maxObs:       opts.MaxObservationChars,
		countTokens:  opts.TokenCounter,
		now:          opts.Now,
	}
}

// ID returns the agent's unique id.
func (a *ReasoningAgent) ID() string { return a.id }

// Name returns the agent's name.
func (a *ReasoningAgent) Name() string { return a.name }

// Description returns the role description.
func (a *ReasoningAgent) Description() string { return a.description }

// SystemPrompt returns the system prompt.
func (a *ReasoningAgent) SystemPrompt() string { return a.systemPrompt }

// Tools returns every tool of the agent, both stages.
func (a *ReasoningAgent) Tools() []tool.Tool { return a.tools }

// Subtask returns the subtask the agent currently works on.
func (a *ReasoningAgent) Subtask() string { return a.subtask }

// SetSubtask assigns the next subtask.
func (a *ReasoningAgent) SetSubtask(s string) { a.subtask = s }

// FinalAnswer returns the answer of the last Execute, if any.
func (a *ReasoningAgent) FinalAnswer() string { return a.finalAnswer }

// History returns the action history of the current run.
func (a *ReasoningAgent) History() []Step { return a.history }

// Actions returns a copy of the actions captured by the last Execute.
func (a *ReasoningAgent) Actions() []core.AgentAction {
	out := make([]core.AgentAction, len(a.actions))
	copy(out, a.actions)

	return out
}

// Team returns the context the agent is attached to.
func (a *ReasoningAgent) Team() *TeamContext { return a.team }

func (a *ReasoningAgent) reset() {
	a.subtask = ""
	a.history = nil
	a.extData = ""
	a.finalAnswer = ""
	a.actions = nil
}

// llm returns the model of the reasoning loop.
func (a *ReasoningAgent) llm() model.Client {
	if a.model != nil {
		return a.model
	}
	if a.team != nil {
		return a.team.Model
	}
	return nil
}

// Execute runs the loop until a final answer, the agent's own step cap, the
// team budget, a reply without action or a model failure.
//
// The returned StepCount is the index of the last step plus one. When the
// loop ends on the agent's own cap this is one more than the steps taken.
func (a *ReasoningAgent) Execute(ctx context.Context) core.AgentResult {
	if a.team == nil {
		return core.AgentError("agent is not attached to a team", 0)
	}

	if a.llm() == nil {
		return core.AgentError("no model configured", 0)
	}

	a.finalAnswer = ""
	a.actions = nil

	a.report("agent.start", fmt.Sprintf("🤖 %s: %s", strings.TrimSpace(a.name), a.subtask), "subtask", a.subtask)

	step := 0

	for (a.maxSteps <= 0 || step < a.maxSteps) && a.finalAnswer == "" {
		if err := ctx.Err(); err != nil {
			return core.AgentError(err.Error(), step)
		}

		if err := a.team.Steps.Acquire(); err != nil {
			a.logger.Warn("agent.step.budget_exceeded", "agent", a.name, "team_steps", a.team.Steps.Count(), "max_steps", a.team.Steps.Max())
			return core.AgentError(teamBudgetMessage, step)
		}

		a.logger.Debug("agent.step.start", "agent", a.name, "step", step+1, "team_steps", a.team.Steps.Count())
		a.metrics.AgentStep(a.name)

		parsed, err := a.think(ctx, step)
		if err != nil {
			a.logger.Error("agent.model.error", "agent", a.name, "step", step+1, "error", err)
			return core.AgentError(errorMessage(err), step)
		}

		if thought := parsed.ThoughtText(); thought != "" {
			a.capture(core.ActionThinking, thought, nil)

			if a.outputMode == OutputLogger {
				a.logger.Info("agent.thought", "agent", a.name, "thought", thought)
			}
		}

		if answer, ok := parsed.Answer(); ok {
			a.finish(ctx, answer)
			break
		}

		toolName, ok := parsed.ToolName()
		if !ok {
			a.report("agent.no_action", noActionMessage)
			break
		}

		a.act(ctx, parsed, toolName)

		step++
	}

	return core.AgentSuccess(a.finalAnswer, step+1)
}

// prompt renders the user message of a step.
func (a *ReasoningAgent) prompt() (string, error) {
	react, err := util.Execute(reactTemplate, reactData{
		Name:            a.name,
		Description:     a.description,
		Subtask:         a.subtask,
		TeamName:        a.team.Name,
		TeamDescription: a.team.Description,
		Tools:           formatTools(a.tools),
		ExtData:         a.extData,
		Now:             a.now().Format(timeLayout),
		Outputs:         a.team.FormatOutputs(),
	})
	if err != nil {
		return "", err
	}

	return react + historyHeader + formatHistory(a.history, a.window), nil
}

// think sends one step to the model and parses the reply.
func (a *ReasoningAgent) think(ctx context.Context, step int) (*parser.Parsed, error) {
	prompt, err := a.prompt()
	if err != nil {
		return nil, core.NewProtocolError("agent.prompt", "failed to render prompt", err)
	}

	messages := make([]model.Message, 0, 2)
	if a.systemPrompt != "" {
		messages = append(messages, model.SystemMessage(a.systemPrompt))
	}

	messages = append(messages, model.UserMessage(prompt))

	req := model.Request{Messages: messages, Temperature: 0}

	if a.outputMode == OutputPrint {
		req.Stream = true
		return a.stream(ctx, req, step)
	}

	client := a.llm()
	start := time.Now()
	resp := client.Call(ctx, req)
	a.recordModelCall(client, resp, resp.Content, time.Since(start))

	if resp.IsError() {
		return nil, core.NewTransportError("agent.call", resp.ErrorMsg(), resp.StatusCode)
	}

	return parser.Parse(resp.Content), nil
}

// stream feeds the reply chunk by chunk through the parser, which renders
// the thought and the final answer to the console as they arrive.
func (a *ReasoningAgent) stream(ctx context.Context, req model.Request, step int) (*parser.Parsed, error) {
	client := a.llm()
	p := parser.New(parser.NewWriterSink(a.out))
	start := time.Now()
	started := false

	for chunk := range client.CallStream(ctx, req) {
		if chunk.Err != nil {
			resp := model.Failed(chunk.Err.StatusCode, chunk.Err.Message)
			a.recordModelCall(client, resp, "", time.Since(start))

			if started {
				fmt.Fprintln(a.out)
			}

			return nil, core.NewTransportError("agent.stream", resp.ErrorMsg(), chunk.Err.StatusCode)
		}

		if !started {
			started = true
			fmt.Fprintf(a.out, "\nStep %d:\n", step+1)
		}

		p.Feed(chunk.Content)
	}

	if started {
		fmt.Fprintln(a.out)
	}

	a.recordModelCall(client, model.Succeeded(""), p.Raw(), time.Since(start))

	return p.Result(), nil
}

// act resolves and runs the requested pre-process tool and appends the step
// to the history. A missing tool or malformed input becomes an error
// observation instead of a call.
func (a *ReasoningAgent) act(ctx context.Context, parsed *parser.Parsed, toolName string) {
	entry := Step{Thought: parsed.ThoughtText(), Action: toolName}

	params := parsed.Params
	switch {
	case params != nil:
		entry.ActionInput = params
	case parsed.ActionInput == nil:
		params = map[string]any{}
		entry.ActionInput = params
	default:
		entry.ActionInput = *parsed.ActionInput
	}

	t := a.findTool(toolName)
	if t == nil {
		msg := fmt.Sprintf("Tool '%s' is not available. Choose one of the available tools or give the final answer.", toolName)
		entry.Observation = &Observation{Status: tool.StatusError, Result: msg}
		a.history = append(a.history, entry)

		return
	}

	if params == nil {
		msg := "action_input must be a JSON object"
		a.logger.Warn("agent.tool.invalid_input", "agent", a.name, "tool", toolName, "input", entry.ActionInput)
		entry.Observation = &Observation{Status: tool.StatusError, Result: msg}
		a.history = append(a.history, entry)

		return
	}

	if a.outputMode == OutputPrint {
		fmt.Fprintf(a.out, "[TOOL] %s: %s\n", toolName, toJSON(params))
	} else {
		a.logger.Info("agent.action", "agent", a.name, "tool", toolName, "input", toJSON(params))
	}

	res := a.runTool(ctx, t, params)
	if res.ExtData != "" {
		a.extData = res.ExtData
	}

	entry.Observation = &Observation{Status: res.Status, Result: a.truncate(res.Result)}
	a.history = append(a.history, entry)
}

// findTool returns the pre-process tool with the given name. Post-process
// tools are never invocable through an action.
func (a *ReasoningAgent) findTool(name string) tool.Tool {
	for _, t := range a.tools {
		if t.Name() != name {
			continue
		}

		if t.Stage() != tool.PreProcess {
			a.logger.Warn("agent.tool.not_invocable", "agent", a.name, "tool", name, "stage", t.Stage())
			return nil
		}

		return t
	}

	a.logger.Warn("agent.tool.missing", "agent", a.name, "tool", name)

	return nil
}

// finish records the final answer, publishes it to the team and runs every
// post-process tool once in registration order.
func (a *ReasoningAgent) finish(ctx context.Context, answer string) {
	a.finalAnswer = answer
	a.capture(core.ActionFinalAnswer, answer, nil)
	a.team.AddOutput(a.name, answer)

	if a.outputMode == OutputLogger {
		a.logger.Info("agent.response", "agent", a.name, "final_answer", answer)
	}

	for _, t := range a.tools {
		if t.Stage() != tool.PostProcess {
			continue
		}

		res := a.runTool(ctx, t, map[string]any{})

		var shown any = res.Result
		if res.IsError() {
			shown = map[string]any{"status": tool.StatusError, "message": res.ErrorMessage}
		}

		a.report("agent.post_process", fmt.Sprintf("\n[TOOL] %s: %s", t.Name(), toJSON(shown)), "tool", t.Name(), "result", toJSON(shown))
	}
}

// runTool executes t, records a ToolUse action and reports the call.
func (a *ReasoningAgent) runTool(ctx context.Context, t tool.Tool, params map[string]any) tool.Result {
	start := time.Now()
	res := safeExecute(ctx, t, a.toolContext(), params)
	dur := time.Since(start)

	logging.LogToolCall(a.logger, t.Name(), dur, !res.IsError(), res.ErrorMessage)
	a.metrics.ToolCall(t.Name(), string(res.Status), dur)

	a.capture(core.ActionToolUse, t.Name(), &core.ToolResult{
		ToolName:      t.Name(),
		InputParams:   params,
		Output:        res.Result,
		Status:        core.ToolStatus(res.Status),
		ErrorMessage:  res.ErrorMessage,
		ExecutionTime: dur.Seconds(),
	})

	return res
}

func safeExecute(ctx context.Context, t tool.Tool, tc *tool.Context, params map[string]any) (res tool.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = tool.Failure(fmt.Sprintf("tool %s panicked: %v", t.Name(), r))
		}
	}()

	return t.Execute(ctx, tc, params)
}

func (a *ReasoningAgent) toolContext() *tool.Context {
	return &tool.Context{
		AgentName:     a.name,
		Subtask:       a.subtask,
		FinalAnswer:   a.finalAnswer,
		UserTask:      a.team.UserTask,
		TeamName:      a.team.Name,
		TaskShortName: a.team.TaskShortName,
		Model:         a.llm(),
		Logger:        a.logger,
	}
}

func (a *ReasoningAgent) capture(typ core.ActionType, content string, tr *core.ToolResult) {
	a.actions = append(a.actions, core.NewAgentAction(a.id, a.name, typ, content, tr))
}

// truncate caps an observation. Non-string results are only converted to
// text when their JSON form exceeds the cap.
func (a *ReasoningAgent) truncate(v any) any {
	if a.maxObs <= 0 {
		return v
	}

	s, ok := v.(string)
	if !ok {
		s = toJSON(v)
		if len([]rune(s)) <= a.maxObs {
			return v
		}
	}

	return util.Truncate(s, a.maxObs, truncatedSuffix)
}

// report prints text in print mode and logs event otherwise.
func (a *ReasoningAgent) report(event, text string, args ...any) {
	if a.outputMode == OutputPrint {
		fmt.Fprintln(a.out, text)
		return
	}

	a.logger.Info(event, append([]any{"agent", a.name, "message", text}, args...)...)
}

// recordModelCall logs and counts a model request. Tokens come from the
// provider's usage report, else from the estimator when metrics are on.
func (a *ReasoningAgent) recordModelCall(client model.Client, resp model.Response, text string, dur time.Duration) {
	info := client.Info()

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	} else if a.metrics != nil && a.countTokens != nil && text != "" {
		tokens = a.countTokens(info.Name, text)
	}

	logging.LogModelCall(a.logger, info.Provider, info.Name, tokens, dur, resp.Success, resp.ErrorMsg())
	a.metrics.ModelCall(info.Provider, resp.Success, tokens)
}

// errorMessage extracts the user-facing message of a classified error.
func errorMessage(err error) string {
	var e *core.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
