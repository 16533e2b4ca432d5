// Package provider resolves a model name to a concrete model.Client.
package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/model/anthropic"
	"github.com/hupe1980/agentteam/model/compat"
	"github.com/hupe1980/agentteam/model/openai"
)

// Provider names a model vendor.
type Provider string

const (
	OpenAI   Provider = "openai"
	Claude   Provider = "claude"
	DeepSeek Provider = "deepseek"
	Qwen     Provider = "qwen"
	Common   Provider = "common"
)

// FallbackModel is used when a team model cannot be constructed.
const FallbackModel = "claude-3-5-sonnet-20241022"

// ErrMissingAPIBase is returned for a common provider without an endpoint.
var ErrMissingAPIBase = errors.New("provider: api base is required for OpenAI-compatible endpoints")

var defaultAPIBases = map[Provider]string{
	OpenAI:   "https://api.openai.com/v1",
	Claude:   "https://api.anthropic.com/v1",
	DeepSeek: "https://api.deepseek.com/v1",
	Qwen:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
}

// DefaultAPIBase returns the public endpoint of a provider, or "".
func DefaultAPIBase(p Provider) string { return defaultAPIBases[p] }

// Settings are the configured credentials and model list of one provider.
type Settings struct {
	APIKey  string
	APIBase string
	Models  []string
}

// Options configure model construction.
type Options struct {
	// Provider overrides resolution when set.
	Provider string
	APIKey   string
	APIBase  string
	// Settings holds configured providers keyed by provider name.
	Settings map[string]Settings
}

// Resolve determines the provider for a model: explicit choice first, then
// the configured model lists, then the name prefix.
func Resolve(name, explicit string, settings map[string]Settings) Provider {
	if explicit != "" {
		return Provider(explicit)
	}

	for p, s := range settings {
		for _, m := range s.Models {
			if m == name {
				return Provider(p)
			}
		}
	}

	return FromModelName(name)
}

// FromModelName maps a model name prefix to a provider.
func FromModelName(name string) Provider {
	switch {
	case hasAnyPrefix(name, "gpt", "text-davinci", "o1"):
		return OpenAI
	case strings.HasPrefix(name, "claude"):
		return Claude
	case strings.HasPrefix(name, "deepseek"):
		return DeepSeek
	case hasAnyPrefix(name, "qwen", "qwq"):
		return Qwen
	default:
		return Common
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// New builds a client for the named model. Explicit credentials win over
// configured settings; missing bases fall back to the provider default.
func New(name string, optFns ...func(o *Options)) (model.Client, error) {
	if name == "" {
		return nil, errors.New("provider: model name is required")
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	p := Resolve(name, opts.Provider, opts.Settings)

	cfg := opts.Settings[string(p)]
	apiKey := firstNonEmpty(opts.APIKey, cfg.APIKey)
	apiBase := firstNonEmpty(opts.APIBase, cfg.APIBase)

	switch p {
	case OpenAI, DeepSeek, Qwen:
		return openai.New(func(o *openai.Options) {
			o.Model = name
			o.Provider = string(p)
			o.APIKey = apiKey
			o.BaseURL = firstNonEmpty(apiBase, DefaultAPIBase(p))
		}), nil
	case Claude:
		if apiBase == "" || apiBase == DefaultAPIBase(Claude) {
			return anthropic.New(func(o *anthropic.Options) {
				o.Model = name
				o.APIKey = apiKey
			}), nil
		}

		return compat.New(func(o *compat.Options) {
			o.Model = name
			o.Provider = string(Claude)
			o.APIKey = apiKey
			o.BaseURL = apiBase
			o.MaxTokens = int(anthropic.MaxTokensFor(name))
		}), nil
	default:
		if apiBase == "" {
			return nil, fmt.Errorf("%w: model %q", ErrMissingAPIBase, name)
		}

		return compat.New(func(o *compat.Options) {
			o.Model = name
			o.Provider = string(p)
			o.APIKey = apiKey
			o.BaseURL = apiBase
		}), nil
	}
}

// ForTeam builds the team-level model. A bare name picks claude when it
// mentions claude and openai otherwise; a failed construction falls back to
// FallbackModel.
func ForTeam(name, explicit string, optFns ...func(o *Options)) model.Client {
	if explicit == "" {
		explicit = string(OpenAI)
		if strings.Contains(strings.ToLower(name), "claude") {
			explicit = string(Claude)
		}
	}

	fns := append([]func(o *Options){}, optFns...)
	fns = append(fns, func(o *Options) { o.Provider = explicit })

	if c, err := New(name, fns...); err == nil {
		return c
	}

	c, _ := New(FallbackModel, append(optFns, func(o *Options) { o.Provider = string(Claude) })...)

	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
