// Package tool defines the capability contract agents use to act on the
// world: a named, described, schema-validated operation tagged with the stage
// at which it may run.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/model"
)

// Stage is the capability stage of a tool.
type Stage string

const (
	// PreProcess tools are invoked by the model through an action.
	PreProcess Stage = "pre_process"
	// PostProcess tools run once, without arguments, after a final answer.
	PostProcess Stage = "post_process"
)

// Status of a tool execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the outcome of Execute.
type Result struct {
	Status Status `json:"status"`
	Result any    `json:"result"`
	// ExtData is injected verbatim into the owning agent's next prompt.
	ExtData      string `json:"ext_data,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Success builds a successful result.
func Success(result any) Result { return Result{Status: StatusSuccess, Result: result} }

// Failure builds an error result. The message doubles as the result so the
// model sees it as the observation.
func Failure(msg string) Result {
	return Result{Status: StatusError, Result: msg, ErrorMessage: msg}
}

// IsError reports whether the execution failed.
func (r Result) IsError() bool { return r.Status == StatusError }

// Context carries what a tool may read about the agent invoking it.
// Post-process tools pull their inputs from here instead of parameters.
type Context struct {
	AgentName     string
	Subtask       string
	FinalAnswer   string
	UserTask      string
	TeamName      string
	TaskShortName string
	Model         model.Client
	Logger        logging.Logger
}

// Log returns the context logger or a no-op logger.
func (c *Context) Log() logging.Logger {
	if c == nil {
		return logging.NoOpLogger{}
	}
	return logging.OrNop(c.Logger)
}

// Tool defines the interface for extending agent capabilities.
//
// Tools that hold resources (browsers, files, connections) should also
// implement io.Closer; the team closes them after every run.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected input.
	Parameters() map[string]any

	// Stage returns the capability stage.
	Stage() Stage

	// Execute runs the tool. Failures are reported in the Result, never panics.
	Execute(ctx context.Context, tc *Context, params map[string]any) Result
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
