// Package anthropic provides a model.Client for the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/agentteam/model"
)

// jsonInstruction is appended to the system prompt when JSON output is
// requested, since the Messages API has no response format switch.
const jsonInstruction = "\n\nYou must respond with valid JSON only. Do not include any text outside the JSON object."

// Options configures the Anthropic client.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
	// MaxTokens defaults by model family when zero.
	MaxTokens  int64
	MaxRetries int
}

// Client wraps the Messages API behind model.Client.
type Client struct {
	client *anthropic.Client
	opts   Options
}

// New creates a client using the official SDK.
func New(optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(opts.MaxRetries)}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimSuffix(opts.BaseURL, "/")+"/"))
	}

	client := anthropic.NewClient(reqOpts...)

	return &Client{client: &client, opts: opts}
}

// NewFromClient creates a client from an existing SDK client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{Model: string(anthropic.ModelClaude3_5Sonnet20241022)}
}

// MaxTokensFor returns the output token limit used for a model.
func MaxTokensFor(name string) int64 {
	for _, family := range []string{"claude-3-5", "claude-3-7", "claude-sonnet-4", "claude-opus-4", "claude-haiku-4"} {
		if strings.Contains(name, family) {
			return 8192
		}
	}

	return 4096
}

func (c *Client) buildParams(req model.Request) anthropic.MessageNewParams {
	var (
		system   strings.Builder
		messages []anthropic.MessageParam
	)

	for _, m := range req.Messages {
		switch m.Role {
		case model.RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
		case model.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if req.JSONFormat {
		system.WriteString(jsonInstruction)
	}

	maxTokens := c.opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = MaxTokensFor(c.opts.Model)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}

	if system.Len() > 0 {
		params.System = []anthropic.TextBlockParam{{Text: system.String()}}
	}

	return params
}

// Call implements model.Client.
func (c *Client) Call(ctx context.Context, req model.Request) model.Response {
	resp, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return model.Failed(classify(err))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}

	out := model.Succeeded(sb.String())
	out.Usage = &model.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	return out
}

// CallStream implements model.Client.
func (c *Client) CallStream(ctx context.Context, req model.Request) <-chan model.StreamChunk {
	out := make(chan model.StreamChunk, 32)

	go func() {
		defer close(out)

		stream := c.client.Messages.NewStreaming(ctx, c.buildParams(req))
		defer stream.Close()

		for stream.Next() {
			event, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}

			delta, ok := event.Delta.AsAny().(anthropic.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}

			select {
			case <-ctx.Done():
				out <- model.StreamChunk{Err: &model.StreamError{Message: ctx.Err().Error()}}
				return
			case out <- model.StreamChunk{Content: delta.Text}:
			}
		}

		if err := stream.Err(); err != nil {
			status, msg := classify(err)
			out <- model.StreamChunk{Err: &model.StreamError{StatusCode: status, Message: msg}}
		}
	}()

	return out
}

// Info implements model.Client.
func (c *Client) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: "claude"}
}

// classify maps an SDK error to a status code and message. Connection
// failures report status 0.
func classify(err error) (int, string) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, errorMessage(apiErr.RawJSON())
	}

	return 0, fmt.Sprintf("Request failed: %v", err)
}

// errorMessage extracts error.message from an API error body.
func errorMessage(raw string) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal([]byte(raw), &body); err != nil || body.Error.Message == "" {
		return "Unknown error"
	}

	return body.Error.Message
}
