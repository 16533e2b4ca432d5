// Package compat provides a model.Client for any endpoint that speaks the
// OpenAI chat completions protocol. It backs the "common" provider and
// Claude models served behind a custom gateway.
package compat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hupe1980/agentteam/model"
	"github.com/sashabaranov/go-openai"
)

// Options configures the compatible client.
type Options struct {
	Model    string
	APIKey   string
	BaseURL  string
	Provider string
	// MaxTokens is omitted from requests when zero.
	MaxTokens  int
	HTTPClient *http.Client
}

// Client talks to an OpenAI-compatible endpoint.
type Client struct {
	client *openai.Client
	opts   Options
}

// New creates a compatible client.
func New(optFns ...func(o *Options)) *Client {
	opts := Options{Provider: "common"}
	for _, fn := range optFns {
		fn(&opts)
	}

	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}

	if opts.HTTPClient != nil {
		config.HTTPClient = opts.HTTPClient
	}

	return &Client{client: openai.NewClientWithConfig(config), opts: opts}
}

func (c *Client) buildRequest(req model.Request, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	out := openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   c.opts.MaxTokens,
		Stream:      stream,
	}

	if req.JSONFormat {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	return out
}

// Call implements model.Client.
func (c *Client) Call(ctx context.Context, req model.Request) model.Response {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return model.Failed(classify(err))
	}

	if len(resp.Choices) == 0 {
		return model.Failed(500, "no choices returned")
	}

	out := model.Succeeded(resp.Choices[0].Message.Content)
	out.Usage = &model.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	return out
}

// CallStream implements model.Client.
func (c *Client) CallStream(ctx context.Context, req model.Request) <-chan model.StreamChunk {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		return model.StreamFailure(classify(err))
	}

	out := make(chan model.StreamChunk, 32)

	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				status, msg := classify(err)
				out <- model.StreamChunk{Err: &model.StreamError{StatusCode: status, Message: msg}}

				return
			}

			for _, ch := range resp.Choices {
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
	}()

	return out
}

// Info implements model.Client.
func (c *Client) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: c.opts.Provider}
}

func classify(err error) (int, string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, "Unknown error"
	}

	return 0, fmt.Sprintf("Request failed: %v", err)
}
