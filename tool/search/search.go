// Package search provides a web search tool backed by the Serper Google
// Search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/tool"
)

// Name is the registered tool name.
const Name = "google_search"

// DefaultEndpoint is the Serper search endpoint.
const DefaultEndpoint = "https://google.serper.dev/search"

// Options configure the search tool.
type Options struct {
	// APIKey defaults to the SERPER_API_KEY environment variable.
	APIKey     string        `yaml:"api_key"`
	Endpoint   string        `yaml:"endpoint"`
	NumResults int           `yaml:"num_results"`
	Timeout    time.Duration `yaml:"timeout"`
	HTTPClient *http.Client  `yaml:"-"`
}

// Search queries Google through Serper.
type Search struct {
	opts Options
}

// New creates the tool.
func New(optFns ...func(o *Options)) *Search {
	opts := Options{Endpoint: DefaultEndpoint, NumResults: 5, Timeout: 15 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Search{opts: opts}
}

// Factory builds the tool from config settings.
func Factory(settings map[string]any) (tool.Tool, error) {
	var opts Options
	if settings != nil {
		if err := util.Decode(settings, &opts); err != nil {
			return nil, err
		}
	}

	return New(func(o *Options) {
		if opts.APIKey != "" {
			o.APIKey = opts.APIKey
		}
		if opts.Endpoint != "" {
			o.Endpoint = opts.Endpoint
		}
		if opts.NumResults > 0 {
			o.NumResults = opts.NumResults
		}
		if opts.Timeout > 0 {
			o.Timeout = opts.Timeout
		}
	}), nil
}

// Descriptor describes the tool without creating it.
func Descriptor() tool.Descriptor { return tool.DescriptorOf(New()) }

// Name implements tool.Tool.
func (s *Search) Name() string { return Name }

// Description implements tool.Tool.
func (s *Search) Description() string {
	return "Search the web with Google and return the top results with title, link and snippet."
}

// Parameters implements tool.Tool.
func (s *Search) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "The search query"},
		},
		"required": []string{"query"},
	}
}

// Stage implements tool.Tool.
func (s *Search) Stage() tool.Stage { return tool.PreProcess }

// Hit is one organic search result.
type Hit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type serperResponse struct {
	Organic []Hit `json:"organic"`
}

// Execute implements tool.Tool.
func (s *Search) Execute(ctx context.Context, tc *tool.Context, params map[string]any) tool.Result {
	query, _ := params["query"].(string)
	query = strings.TrimSpace(query)

	if query == "" {
		return tool.Failure("parameter 'query' is required")
	}

	apiKey := s.opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("SERPER_API_KEY")
	}

	if apiKey == "" {
		return tool.Failure("google_search is not configured: set tools.google_search.api_key or SERPER_API_KEY")
	}

	body, _ := json.Marshal(map[string]any{"q": query, "num": s.opts.NumResults})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return tool.Failure(err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", apiKey)

	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return tool.Failure(fmt.Sprintf("search request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return tool.Failure(fmt.Sprintf("read search response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return tool.Failure(fmt.Sprintf("search API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var decoded serperResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return tool.Failure(fmt.Sprintf("decode search response: %v", err))
	}

	hits := decoded.Organic
	if len(hits) > s.opts.NumResults {
		hits = hits[:s.opts.NumResults]
	}

	tc.Log().Debug("tool.google_search.done", "query", query, "hits", len(hits))

	return tool.Success(hits)
}
