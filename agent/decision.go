package agent

import (
	"context"
	"time"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/model"
)

// NoNextAgent is the id a decision returns to stop the chain.
const NoNextAgent = -1

// Decision is the structured reply of a decision request. ID is nil when
// the model left it out.
type Decision struct {
	ID            *int   `yaml:"id"`
	Subtask       string `yaml:"subtask"`
	TaskShortName string `yaml:"task_short_name"`
}

// AgentID returns the selected id, or NoNextAgent when none was given.
func (d Decision) AgentID() int {
	if d.ID == nil || *d.ID < 0 {
		return NoNextAgent
	}
	return *d.ID
}

// ParseDecision decodes a decision reply. Fenced JSON is accepted and ids
// given as strings are converted.
func ParseDecision(text string) (Decision, error) {
	var raw map[string]any
	if err := util.LoadJSON(text, &raw); err != nil {
		return Decision{}, core.NewProtocolError("decision.parse", "reply is not a JSON object", err)
	}

	var d Decision
	if err := util.Decode(raw, &d); err != nil {
		return Decision{}, core.NewProtocolError("decision.decode", "reply has unexpected field types", err)
	}

	return d, nil
}

// ShouldInvokeNext asks the team model whether another member should run
// after this one. It returns the roster id of that member, whose subtask is
// set as a side effect, or NoNextAgent. Every failure stops the chain.
func (a *ReasoningAgent) ShouldInvokeNext(ctx context.Context) int {
	tc := a.team
	if tc == nil || tc.Model == nil {
		return NoNextAgent
	}

	roster := tc.FormatRoster(a.name)
	if roster == "" {
		return NoNextAgent
	}

	prompt, err := util.Execute(decisionTemplate, decisionData{
		TeamName:        tc.Name,
		TeamDescription: tc.Description,
		TeamRule:        tc.Rule,
		Roster:          roster,
		Outputs:         tc.FormatOutputs(),
		UserTask:        tc.UserTask,
	})
	if err != nil {
		a.logger.Error("agent.decision.prompt", "agent", a.name, "error", err)
		return NoNextAgent
	}

	start := time.Now()
	resp := tc.Model.Call(ctx, model.Request{
		Messages:    []model.Message{model.UserMessage(prompt)},
		Temperature: 0,
		JSONFormat:  true,
	})
	a.recordModelCall(tc.Model, resp, resp.Content, time.Since(start))

	if resp.IsError() {
		a.logger.Error("agent.decision.error", "agent", a.name, "error", resp.ErrorMsg())
		return NoNextAgent
	}

	d, err := ParseDecision(resp.Content)
	if err != nil {
		a.logger.Warn("agent.decision.invalid", "agent", a.name, "error", err, "reply", util.Truncate(resp.Content, 200, "..."))
		return NoNextAgent
	}

	id := d.AgentID()
	if id == NoNextAgent {
		a.logger.Info("agent.decision.stop", "agent", a.name)
		return NoNextAgent
	}

	next, ok := tc.Agent(id)
	if !ok {
		a.logger.Warn("agent.decision.out_of_range", "agent", a.name, "id", id, "agents", len(tc.Agents()))
		return NoNextAgent
	}

	next.SetSubtask(d.Subtask)
	a.logger.Info("agent.decision.next", "agent", a.name, "next", next.Name(), "id", id, "subtask", d.Subtask)

	return id
}
