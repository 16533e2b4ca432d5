package core

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these to classify an *Error.
var (
	// ErrTransport marks network or connection failures on a model call.
	ErrTransport = errors.New("transport error")
	// ErrProtocol marks replies that fail the required structured parse.
	ErrProtocol = errors.New("protocol error")
	// ErrTool marks a tool execution failure.
	ErrTool = errors.New("tool error")
	// ErrBudgetExceeded marks a team-wide or per-agent step cap being reached.
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrUnhandledFault marks any other failure caught at the top of a run.
	ErrUnhandledFault = errors.New("unhandled fault")
)

// Error is a classified failure. Kind is one of the Err* sentinels.
type Error struct {
	Kind       error
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%v: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the error kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

// NewTransportError classifies a failed model call.
func NewTransportError(op, message string, statusCode int) *Error {
	return &Error{Kind: ErrTransport, Op: op, Message: message, StatusCode: statusCode}
}

// NewProtocolError classifies a reply that could not be decoded.
func NewProtocolError(op, message string, err error) *Error {
	return &Error{Kind: ErrProtocol, Op: op, Message: message, Err: err}
}

// NewToolError classifies a failed tool execution.
func NewToolError(op, message string, err error) *Error {
	return &Error{Kind: ErrTool, Op: op, Message: message, Err: err}
}

// NewBudgetError classifies an exhausted step budget.
func NewBudgetError(op, message string) *Error {
	return &Error{Kind: ErrBudgetExceeded, Op: op, Message: message}
}

// NewUnhandledFault wraps a recovered panic value or unexpected error.
func NewUnhandledFault(op string, recovered any) *Error {
	if err, ok := recovered.(error); ok {
		return &Error{Kind: ErrUnhandledFault, Op: op, Err: err}
	}
	return &Error{Kind: ErrUnhandledFault, Op: op, Message: fmt.Sprint(recovered)}
}
