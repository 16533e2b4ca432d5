package model

import (
	"context"
	"fmt"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// Request is the normalized model input.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	// JSONFormat asks the provider for strict JSON output.
	JSONFormat bool `json:"json_format"`
	Stream     bool `json:"stream"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the outcome of a single-shot call.
type Response struct {
	Success      bool        `json:"success"`
	Content      string      `json:"content"`
	ErrorMessage string      `json:"error_message,omitempty"`
	StatusCode   int         `json:"status_code"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// IsError reports whether the call failed.
func (r Response) IsError() bool { return !r.Success }

// Succeeded builds a successful response.
func Succeeded(content string) Response {
	return Response{Success: true, Content: content, StatusCode: 200}
}

// Failed builds an error response. Use status 0 for connection failures.
func Failed(statusCode int, message string) Response {
	return Response{Success: false, StatusCode: statusCode, ErrorMessage: message}
}

// StreamError is the inline error object of a stream.
type StreamError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s (Status code: %d)", e.Message, e.StatusCode)
}

// StreamChunk carries either a content fragment or an error.
type StreamChunk struct {
	Content string
	Err     *StreamError
}

// Info contains metadata about a client implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Client is the minimal interface agents and teams need from a model.
type Client interface {
	// Call performs a single-shot request.
	Call(ctx context.Context, req Request) Response
	// CallStream performs a streaming request. The channel is closed when the
	// stream ends; an error chunk is always the last one.
	CallStream(ctx context.Context, req Request) <-chan StreamChunk
	// Info returns information about the client.
	Info() Info
}
