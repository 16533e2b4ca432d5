package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/model"
)

// OutputMode selects how agents surface their progress.
type OutputMode string

const (
	// OutputPrint streams replies to the console as they arrive.
	OutputPrint OutputMode = "print"
	// OutputLogger makes single-shot calls and logs the parsed fields.
	OutputLogger OutputMode = "logger"
)

// ParseOutputMode maps a config string to an OutputMode. Anything other than
// "logger" prints.
func ParseOutputMode(s string) OutputMode {
	if strings.EqualFold(strings.TrimSpace(s), string(OutputLogger)) {
		return OutputLogger
	}
	return OutputPrint
}

// PeerOutput is a final answer a member published to the team.
type PeerOutput struct {
	AgentName string `json:"agent_name"`
	Output    string `json:"output"`
}

// TeamContext is the state every member of a team run shares: team metadata,
// the roster, the answers published so far and the team-wide step budget.
//
// It is not safe for concurrent use beyond the step counter; the team runs
// one agent at a time.
type TeamContext struct {
	Name        string
	Description string
	Rule        string

	// UserTask is the original request of the current run.
	UserTask string
	// TaskShortName is the short label chosen by the initial selection.
	TaskShortName string

	// Model is the team-level model used for decisions and as the default
	// for members without their own.
	Model model.Client

	// Steps is the team-wide budget every agent step draws from.
	Steps *core.StepCounter

	agents  []*ReasoningAgent
	outputs []PeerOutput
}

// NewTeamContext creates a context with a team-wide cap of maxSteps
// (<= 0 means unlimited).
func NewTeamContext(name, description, rule string, maxSteps int, m model.Client) *TeamContext {
	return &TeamContext{
		Name:        name,
		Description: description,
		Rule:        rule,
		Model:       m,
		Steps:       core.NewStepCounter(maxSteps),
	}
}

// AddAgent appends a to the roster and attaches it to this context. The
// roster index is the id used by decision prompts.
func (tc *TeamContext) AddAgent(agents ...*ReasoningAgent) {
	for _, a := range agents {
		a.team = tc
		tc.agents = append(tc.agents, a)
	}
}

// Agents returns the roster in id order.
func (tc *TeamContext) Agents() []*ReasoningAgent { return tc.agents }

// Agent returns the member with the given id.
func (tc *TeamContext) Agent(id int) (*ReasoningAgent, bool) {
	if id < 0 || id >= len(tc.agents) {
		return nil, false
	}
	return tc.agents[id], true
}

// AddOutput publishes a member's final answer.
func (tc *TeamContext) AddOutput(agentName, output string) {
	tc.outputs = append(tc.outputs, PeerOutput{AgentName: agentName, Output: output})
}

// Outputs returns the answers published so far, oldest first.
func (tc *TeamContext) Outputs() []PeerOutput { return tc.outputs }

// Reset prepares the context for a new run of userTask: the budget, the
// published outputs and every member's per-run state start over.
func (tc *TeamContext) Reset(userTask string) {
	tc.UserTask = userTask
	tc.TaskShortName = ""
	tc.outputs = nil
	tc.Steps.Reset()

	for _, a := range tc.agents {
		a.reset()
	}
}

// FormatOutputs renders the published answers for prompts.
func (tc *TeamContext) FormatOutputs() string {
	entries := make([]string, 0, len(tc.outputs))
	for _, o := range tc.outputs {
		entries = append(entries, fmt.Sprintf("member name: %s\noutput content: %s\n\n", o.AgentName, o.Output))
	}

	return strings.Join(entries, "\n")
}

// FormatRoster renders the members as the comma separated list decision
// prompts expect. Members named exclude are left out but the others keep
// their roster ids.
func (tc *TeamContext) FormatRoster(exclude string) string {
	entries := make([]string, 0, len(tc.agents))

	for i, a := range tc.agents {
		if exclude != "" && a.Name() == exclude {
			continue
		}

		entries = append(entries, fmt.Sprintf(`{"id": %d, "name": "%s", "description": "%s", "system_prompt": "%s"}`,
			i, a.Name(), a.Description(), a.SystemPrompt()))
	}

	return strings.Join(entries, ", ")
}
