package core

import "time"

// ToolStatus reports the outcome of a tool execution.
type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// ToolResult captures a single tool invocation. ExecutionTime is in seconds.
type ToolResult struct {
	ToolName      string         `json:"tool_name"`
	InputParams   map[string]any `json:"input_params"`
	Output        any            `json:"output"`
	Status        ToolStatus     `json:"status"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ExecutionTime float64        `json:"execution_time"`
}

// ActionType classifies an AgentAction.
type ActionType string

const (
	ActionToolUse     ActionType = "tool_use"
	ActionThinking    ActionType = "thinking"
	ActionFinalAnswer ActionType = "final_answer"
)

// AgentAction is an append-only record of something an agent did.
type AgentAction struct {
	ID         string      `json:"id"`
	AgentID    string      `json:"agent_id"`
	AgentName  string      `json:"agent_name"`
	Type       ActionType  `json:"action_type"`
	Content    string      `json:"content"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewAgentAction stamps a new action with a fresh id and the current time.
func NewAgentAction(agentID, agentName string, typ ActionType, content string, tr *ToolResult) AgentAction {
	return AgentAction{
		ID:         NewID(),
		AgentID:    agentID,
		AgentName:  agentName,
		Type:       typ,
		Content:    content,
		ToolResult: tr,
		Timestamp:  time.Now().UTC(),
	}
}

// AgentExecutionResult aggregates one agent turn inside a chain.
type AgentExecutionResult struct {
	AgentID     string        `json:"agent_id"`
	AgentName   string        `json:"agent_name"`
	Subtask     string        `json:"subtask"`
	Actions     []AgentAction `json:"actions"`
	FinalAnswer string        `json:"final_answer"`
	Error       string        `json:"error,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
}

// NewAgentExecutionResult starts the clock for an agent turn.
func NewAgentExecutionResult(agentID, agentName, subtask string) *AgentExecutionResult {
	return &AgentExecutionResult{
		AgentID:   agentID,
		AgentName: agentName,
		Subtask:   subtask,
		Actions:   []AgentAction{},
		StartTime: time.Now().UTC(),
	}
}

// AddAction appends an action. A final answer action also becomes the
// result's FinalAnswer.
func (r *AgentExecutionResult) AddAction(a AgentAction) {
	r.Actions = append(r.Actions, a)
	if a.Type == ActionFinalAnswer {
		r.FinalAnswer = a.Content
	}
}

// Complete stops the clock.
func (r *AgentExecutionResult) Complete() {
	now := time.Now().UTC()
	r.EndTime = &now
}

// ExecutionTime is EndTime - StartTime, or 0 while the turn is still running.
func (r *AgentExecutionResult) ExecutionTime() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// TeamStatus is the status of a whole team run.
type TeamStatus string

const (
	TeamStatusRunning   TeamStatus = "running"
	TeamStatusCompleted TeamStatus = "completed"
	TeamStatusFailed    TeamStatus = "failed"
)

// TeamResult aggregates a full run. Its ID is the task id.
type TeamResult struct {
	ID           string                  `json:"id"`
	TeamName     string                  `json:"team_name"`
	Task         *Task                   `json:"task"`
	AgentResults []*AgentExecutionResult `json:"agent_results"`
	FinalOutput  string                  `json:"final_output"`
	Status       TeamStatus              `json:"status"`
	StartTime    time.Time               `json:"start_time"`
	EndTime      *time.Time              `json:"end_time,omitempty"`
}

// NewTeamResult creates a running result for task.
func NewTeamResult(teamName string, task *Task) *TeamResult {
	return &TeamResult{
		ID:           task.ID,
		TeamName:     teamName,
		Task:         task,
		AgentResults: []*AgentExecutionResult{},
		Status:       TeamStatusRunning,
		StartTime:    time.Now().UTC(),
	}
}

// AddAgentResult appends r and keeps FinalOutput equal to the last non-empty
// final answer seen so far.
func (t *TeamResult) AddAgentResult(r *AgentExecutionResult) {
	t.AgentResults = append(t.AgentResults, r)
	if r.FinalAnswer != "" {
		t.FinalOutput = r.FinalAnswer
	}
}

// Complete stamps the end time and sets the terminal status.
func (t *TeamResult) Complete(status TeamStatus) {
	now := time.Now().UTC()
	t.EndTime = &now
	t.Status = status
}

// ExecutionTime is EndTime - StartTime, or 0 while the run is in progress.
func (t *TeamResult) ExecutionTime() time.Duration {
	if t.EndTime == nil {
		return 0
	}
	return t.EndTime.Sub(t.StartTime)
}

// AgentStatus is the outcome of a single agent loop.
type AgentStatus string

const (
	AgentStatusSuccess AgentStatus = "success"
	AgentStatusError   AgentStatus = "error"
)

// AgentResult is returned by ReasoningAgent.Execute.
type AgentResult struct {
	FinalAnswer  string      `json:"final_answer"`
	StepCount    int         `json:"step_count"`
	Status       AgentStatus `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// AgentSuccess builds a successful AgentResult.
func AgentSuccess(finalAnswer string, stepCount int) AgentResult {
	return AgentResult{FinalAnswer: finalAnswer, StepCount: stepCount, Status: AgentStatusSuccess}
}

// AgentError builds an error AgentResult. The final answer carries the
// message so callers that only look at answers still see what went wrong.
func AgentError(msg string, stepCount int) AgentResult {
	return AgentResult{
		FinalAnswer:  "Error: " + msg,
		StepCount:    stepCount,
		Status:       AgentStatusError,
		ErrorMessage: msg,
	}
}

// IsError reports whether the agent loop ended in error.
func (r AgentResult) IsError() bool { return r.Status == AgentStatusError }
