package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/logging"
)

// Func is the signature wrapped by FunctionTool. Returning *ToolError keeps
// its code; any other error becomes EXECUTION_ERROR.
type Func func(ctx context.Context, tc *Context, args map[string]any) (any, error)

// FunctionTool exposes a plain Go function as a tool.
//
// Arguments are validated against the parameter schema before the function
// runs; validation failures are reported with code VALIDATION_ERROR. A
// FunctionTool has no mutable state after construction.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	stage       Stage
	fn          Func
}

// NewFunctionTool constructs a pre-process FunctionTool from an explicit
// schema and function.
//
// Example:
//
//	sum := tool.NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(_ context.Context, _ *tool.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn Func) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		stage:       PreProcess,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct.
func NewFunctionToolFromStruct(name, description string, structType any, fn Func) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// WithStage returns a copy of the tool at the given stage.
func (t *FunctionTool) WithStage(s Stage) *FunctionTool {
	nt := *t
	nt.stage = s

	return &nt
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Stage implements Tool.
func (t *FunctionTool) Stage() Stage { return t.stage }

// Call validates args and invokes the function, returning *ToolError on
// failure.
func (t *FunctionTool) Call(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(ctx, tc, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return nil, toolErr
		}

		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution}
	}

	return result, nil
}

// Execute implements Tool.
func (t *FunctionTool) Execute(ctx context.Context, tc *Context, params map[string]any) Result {
	logger := tc.Log()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "agent", agentName(tc))

	result, err := t.Call(ctx, tc, params)
	if err != nil {
		logging.LogToolCall(logger, t.name, time.Since(start), false, err.Error())
		return Failure(err.Error())
	}

	logging.LogToolCall(logger, t.name, time.Since(start), true, "")

	return Success(result)
}

func agentName(tc *Context) string {
	if tc == nil {
		return ""
	}
	return tc.AgentName
}
