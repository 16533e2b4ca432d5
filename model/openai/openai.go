// Package openai provides a model.Client over the OpenAI Chat Completions
// API using the official SDK. The same client serves DeepSeek and Qwen, which
// expose OpenAI-compatible endpoints under their own base URLs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentteam/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Options configure the OpenAI client.
type Options struct {
	Model    string
	APIKey   string
	BaseURL  string
	Provider string
	// MaxCompletionTokens is omitted from requests when zero.
	MaxCompletionTokens int64
	MaxRetries          int
}

// Client wraps the Chat Completions API behind model.Client.
type Client struct {
	client *openai.Client
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
		reqOpts = append(reqOpts, option.WithBaseURL(withTrailingSlash(opts.BaseURL)))
	}

	client := openai.NewClient(reqOpts...)

	return &Client{client: &client, opts: opts}
}

// NewFromClient creates a client from an existing SDK client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:    openai.ChatModelGPT4oMini,
		Provider: "openai",
	}
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func (c *Client) buildParams(req model.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       c.opts.Model,
		Temperature: openai.Float(req.Temperature),
	}

	if c.opts.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.opts.MaxCompletionTokens)
	}

	if req.JSONFormat {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	return params
}

// Call implements model.Client.
func (c *Client) Call(ctx context.Context, req model.Request) model.Response {
	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return model.Failed(classify(err))
	}

	if len(resp.Choices) == 0 {
		return model.Failed(500, "no choices returned")
	}

	out := model.Succeeded(resp.Choices[0].Message.Content)
	out.Usage = &model.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	return out
}

// CallStream implements model.Client.
func (c *Client) CallStream(ctx context.Context, req model.Request) <-chan model.StreamChunk {
	out := make(chan model.StreamChunk, 32)

	go func() {
		defer close(out)

		stream := c.client.Chat.Completions.NewStreaming(ctx, c.buildParams(req))
		defer stream.Close()

		for stream.Next() {
			ck := stream.Current()
			for _, ch := range ck.Choices {
				if ch.Delta.Content == "" {
					continue
				}

				select {
				case <-ctx.Done():
					out <- model.StreamChunk{Err: &model.StreamError{Message: ctx.Err().Error()}}
					return
				case out <- model.StreamChunk{Content: ch.Delta.Content}:
				}
			}
		}

		if err := stream.Err(); err != nil {
			status, msg := classify(err)
			out <- model.StreamChunk{Err: &model.StreamError{StatusCode: status, Message: msg}}
		}
	}()

	return out
}

// classify maps an SDK error to a status code and message. Connection
// failures report status 0.
func classify(err error) (int, string) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Message
	}

	return 0, fmt.Sprintf("Request failed: %v", err)
}

// Info implements model.Client.
func (c *Client) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: c.opts.Provider}
}
