package team

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/metrics"
	"github.com/hupe1980/agentteam/model"
)

// Store persists finished team results.
type Store interface {
	// Save writes r and returns where it was stored.
	Save(ctx context.Context, r *core.TeamResult) (string, error)
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// OutputMode selects console progress (print) or log events (logger).
	OutputMode agent.OutputMode
	// Output receives the console rendering in print mode.
	Output io.Writer
	// EventBufferSize sets the buffering of RunStream's agent channel.
	EventBufferSize int
	// Store persists every finished result when set.
	Store   Store
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Orchestrator runs a team of ReasoningAgents on tasks. It runs one chain at
// a time; concurrent Run calls on the same Orchestrator are serialized.
type Orchestrator struct {
	team *agent.TeamContext

	outputMode      agent.OutputMode
	out             io.Writer
	eventBufferSize int
	store           Store
	logger          logging.Logger
	metrics         *metrics.Metrics

	runMu      sync.Mutex
	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs an Orchestrator for tc with optional overrides.
func New(tc *agent.TeamContext, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		OutputMode:      agent.OutputPrint,
		Output:          os.Stdout,
		EventBufferSize: 16,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Output == nil {
		opts.Output = io.Discard
	}

	return &Orchestrator{
		team:            tc,
		outputMode:      opts.OutputMode,
		out:             opts.Output,
		eventBufferSize: opts.EventBufferSize,
		store:           opts.Store,
		logger:          logging.OrNop(opts.Logger),
		metrics:         opts.Metrics,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// Name returns the team name.
func (o *Orchestrator) Name() string { return o.team.Name }

// Team returns the shared team context.
func (o *Orchestrator) Team() *agent.TeamContext { return o.team }

// Run executes task to completion and returns the aggregated result. It
// never returns nil and never panics; failures are reported through the
// result status.
func (o *Orchestrator) Run(ctx context.Context, task string) *core.TeamResult {
	return o.start(ctx, core.NewTask(task), func(*core.AgentExecutionResult) {})
}

// RunStream executes task in the background. Each agent result is delivered
// on the first channel as soon as that agent finishes; the final result is
// delivered on the second once the first is closed. The returned id can be
// passed to Cancel.
func (o *Orchestrator) RunStream(ctx context.Context, task string) (string, <-chan *core.AgentExecutionResult, <-chan *core.TeamResult) {
	t := core.NewTask(task)

	agentsCh := make(chan *core.AgentExecutionResult, o.eventBufferSize)
	resultCh := make(chan *core.TeamResult, 1)

	go func() {
		defer close(resultCh)

		result := o.start(ctx, t, func(r *core.AgentExecutionResult) {
			select {
			case <-ctx.Done():
			case agentsCh <- r:
			}
		})

		close(agentsCh)
		resultCh <- result
	}()

	return t.ID, agentsCh, resultCh
}

// Cancel stops a running run by id. The agent in control finishes its
// current step first.
func (o *Orchestrator) Cancel(runID string) error {
	o.mu.Lock()
	cancel, exists := o.activeRuns[runID]
	o.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// Cleanup closes every agent tool that implements io.Closer. Close errors
// are logged and otherwise ignored.
func (o *Orchestrator) Cleanup() {
	for _, a := range o.team.Agents() {
		for _, t := range a.Tools() {
			c, ok := t.(io.Closer)
			if !ok {
				continue
			}

			if err := c.Close(); err != nil {
				o.logger.Warn("tool.close.error", "agent", a.Name(), "tool", t.Name(), "error", err)
			}
		}
	}
}

func (o *Orchestrator) start(ctx context.Context, task *core.Task, emit func(*core.AgentExecutionResult)) *core.TeamResult {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.activeRuns[task.ID] = cancel
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.activeRuns, task.ID)
		o.mu.Unlock()
	}()

	return o.execute(ctx, task, emit)
}

// execute drives one chain. The deferred block turns a panic into a failed
// result and always cleans up, reports and persists.
func (o *Orchestrator) execute(ctx context.Context, task *core.Task, emit func(*core.AgentExecutionResult)) (result *core.TeamResult) {
	tc := o.team
	begin := time.Now()

	result = core.NewTeamResult(tc.Name, task)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("team.run.fault", "team", tc.Name, "task_id", task.ID, "error", core.NewUnhandledFault("team.run", r))
			o.fail(result)
		}

		o.Cleanup()

		logging.LogTeamRun(o.logger, tc.Name, len(result.AgentResults), tc.Steps.Count(), time.Since(begin), string(result.Status))
		o.metrics.TeamRun(tc.Name, string(result.Status))
		o.persist(context.WithoutCancel(ctx), result)
	}()

	tc.Reset(task.Text())
	task.UpdateStatus(core.TaskStatusProcessing)

	o.logger.Info("team.run.start", "team", tc.Name, "task_id", task.ID, "agents", len(tc.Agents()), "max_steps", tc.Steps.Max())
	o.print(fmt.Sprintf("\nTeam %s received the task and started processing\n", tc.Name))

	id, err := o.selectInitial(ctx)
	if err != nil {
		o.logger.Error("team.select.failed", "team", tc.Name, "error", err)
		o.fail(result)

		return result
	}

	failed := false
	totalSteps := 0

	for {
		a, _ := tc.Agent(id)

		execution := core.NewAgentExecutionResult(strconv.Itoa(id), a.Name(), a.Subtask())
		res := a.Execute(ctx)

		for _, action := range a.Actions() {
			execution.AddAction(action)
		}

		if res.IsError() {
			failed = true
			execution.Error = res.ErrorMessage
			o.logger.Warn("team.agent.error", "team", tc.Name, "agent", a.Name(), "error", res.ErrorMessage)
		}

		execution.Complete()
		result.AddAgentResult(execution)
		emit(execution)

		totalSteps += res.StepCount

		// Failed turns report fewer steps than they took from the counter, so
		// the counter is checked on its own as well.
		if limit := tc.Steps.Max(); limit > 0 && (totalSteps >= limit || tc.Steps.Exhausted()) {
			o.logger.Info("team.chain.budget_exhausted", "team", tc.Name, "steps", totalSteps, "team_steps", tc.Steps.Count(), "remaining", tc.Steps.Remaining(), "max_steps", limit)
			o.print(fmt.Sprintf("\nReached maximum total steps (%d). Stopping execution.", limit))

			break
		}

		if ctx.Err() != nil {
			break
		}

		next := a.ShouldInvokeNext(ctx)
		if next == agent.NoNextAgent || next >= len(tc.Agents()) {
			o.logger.Info("team.chain.stop", "team", tc.Name, "last_agent", a.Name())
			break
		}

		nextAgent, _ := tc.Agent(next)
		o.logger.Info("team.chain.next", "team", tc.Name, "from", a.Name(), "to", nextAgent.Name(), "subtask", nextAgent.Subtask())

		id = next
	}

	if failed && result.FinalOutput == "" {
		o.fail(result)
		return result
	}

	task.UpdateStatus(core.TaskStatusCompleted)
	result.Complete(core.TeamStatusCompleted)

	o.print(fmt.Sprintf("\nTeam %s completed the task", tc.Name))

	return result
}

// selectInitial asks the team model for the first member and its subtask.
// Any failure is final; there is no retry.
func (o *Orchestrator) selectInitial(ctx context.Context) (int, error) {
	tc := o.team

	if len(tc.Agents()) == 0 {
		return agent.NoNextAgent, core.NewProtocolError("team.select", "team has no agents", nil)
	}

	if tc.Model == nil {
		return agent.NoNextAgent, core.NewTransportError("team.select", "team has no model", 0)
	}

	prompt, err := util.Execute(selectionTemplate, selectionData{
		TeamName:        tc.Name,
		TeamDescription: tc.Description,
		TeamRule:        tc.Rule,
		Roster:          tc.FormatRoster(""),
		UserTask:        tc.UserTask,
	})
	if err != nil {
		return agent.NoNextAgent, core.NewProtocolError("team.select", "failed to render prompt", err)
	}

	start := time.Now()
	resp := tc.Model.Call(ctx, model.Request{
		Messages:    []model.Message{model.UserMessage(prompt)},
		Temperature: 0,
		JSONFormat:  true,
	})

	info := tc.Model.Info()
	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}

	logging.LogModelCall(o.logger, info.Provider, info.Name, tokens, time.Since(start), resp.Success, resp.ErrorMsg())
	o.metrics.ModelCall(info.Provider, resp.Success, tokens)

	if resp.IsError() {
		return agent.NoNextAgent, core.NewTransportError("team.select", resp.ErrorMsg(), resp.StatusCode)
	}

	d, err := agent.ParseDecision(resp.Content)
	if err != nil {
		return agent.NoNextAgent, err
	}

	id := d.AgentID()

	selected, ok := tc.Agent(id)
	if !ok {
		return agent.NoNextAgent, core.NewProtocolError("team.select", fmt.Sprintf("selected agent id %d is out of range", id), nil)
	}

	selected.SetSubtask(d.Subtask)
	tc.TaskShortName = d.TaskShortName

	o.logger.Info("team.select.initial", "team", tc.Name, "agent", selected.Name(), "id", id, "subtask", d.Subtask, "task_short_name", d.TaskShortName)

	return id, nil
}

func (o *Orchestrator) fail(result *core.TeamResult) {
	result.Task.UpdateStatus(core.TaskStatusFailed)
	result.Complete(core.TeamStatusFailed)
}

func (o *Orchestrator) persist(ctx context.Context, result *core.TeamResult) {
	if o.store == nil {
		return
	}

	location, err := o.store.Save(ctx, result)
	if err != nil {
		o.logger.Warn("team.result.save_error", "team", o.team.Name, "task_id", result.ID, "error", err)
		return
	}

	o.logger.Info("team.result.saved", "team", o.team.Name, "task_id", result.ID, "location", location)
}

// print writes progress to the console in print mode. Logger mode relies on
// the structured events alone.
func (o *Orchestrator) print(text string) {
	if o.outputMode == agent.OutputPrint {
		fmt.Fprintln(o.out, text)
	}
}
