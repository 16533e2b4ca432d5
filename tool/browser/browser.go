// Package browser provides a tool that loads web pages in a headless
// Chromium and returns their visible text.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/tool"
)

// Name is the registered tool name.
const Name = "browser"

const truncatedSuffix = "\n... (truncated)"

// Options configure the browser tool.
type Options struct {
	Headless bool          `yaml:"headless"`
	Timeout  time.Duration `yaml:"timeout"`
	// Bin is the browser executable; empty lets rod find or download one.
	Bin string `yaml:"bin"`
	// ControlURL connects to an already running browser instead of launching.
	ControlURL string `yaml:"control_url"`
	MaxChars   int    `yaml:"max_chars"`
}

// Browser lazily launches one browser per tool instance and reuses it for
// every call. Close releases the process.
type Browser struct {
	opts Options

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// New creates the tool. No browser starts until the first call.
func New(optFns ...func(o *Options)) *Browser {
	opts := Options{Headless: true, Timeout: 30 * time.Second, MaxChars: 20000}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Browser{opts: opts}
}

// Factory builds the tool from config settings.
func Factory(settings map[string]any) (tool.Tool, error) {
	b := New()
	if settings != nil {
		if err := util.Decode(settings, &b.opts); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Descriptor describes the tool without creating it.
func Descriptor() tool.Descriptor { return tool.DescriptorOf(New()) }

// Name implements tool.Tool.
func (b *Browser) Name() string { return Name }

// Description implements tool.Tool.
func (b *Browser) Description() string {
	return "Open a web page and return its title and visible text. Optionally restrict the text to a CSS selector."
}

// Parameters implements tool.Tool.
func (b *Browser) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":      map[string]any{"type": "string", "description": "Absolute URL to open"},
			"selector": map[string]any{"type": "string", "description": "Optional CSS selector, defaults to body"},
		},
		"required": []string{"url"},
	}
}

// Stage implements tool.Tool.
func (b *Browser) Stage() tool.Stage { return tool.PreProcess }

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	controlURL := b.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(b.opts.Headless).NoSandbox(true)
		if b.opts.Bin != "" {
			l = l.Bin(b.opts.Bin)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}

		b.launcher = l
		controlURL = u
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		b.killLauncher()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	b.browser = br

	return br, nil
}

// Execute implements tool.Tool.
func (b *Browser) Execute(ctx context.Context, tc *tool.Context, params map[string]any) tool.Result {
	url, _ := params["url"].(string)
	url = strings.TrimSpace(url)

	if url == "" {
		return tool.Failure("parameter 'url' is required")
	}

	selector, _ := params["selector"].(string)
	if selector == "" {
		selector = "body"
	}

	br, err := b.connect()
	if err != nil {
		return tool.Failure(err.Error())
	}

	page, err := br.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return tool.Failure(fmt.Sprintf("open %s: %v", url, err))
	}
	defer func() { _ = page.Close() }()

	if b.opts.Timeout > 0 {
		page = page.Timeout(b.opts.Timeout)
	}

	if err := page.WaitLoad(); err != nil {
		return tool.Failure(fmt.Sprintf("load %s: %v", url, err))
	}

	title := ""
	if info, err := page.Info(); err == nil {
		title = info.Title
	}

	el, err := page.Element(selector)
	if err != nil {
		return tool.Failure(fmt.Sprintf("find %q: %v", selector, err))
	}

	text, err := el.Text()
	if err != nil {
		return tool.Failure(fmt.Sprintf("read %q: %v", selector, err))
	}

	tc.Log().Debug("tool.browser.loaded", "url", url, "chars", len(text))

	return tool.Success(map[string]any{
		"url":   url,
		"title": title,
		"text":  util.Truncate(strings.TrimSpace(text), b.opts.MaxChars, truncatedSuffix),
	})
}

// Close releases the browser and its process.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}

	b.killLauncher()

	return err
}

func (b *Browser) killLauncher() {
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
		b.launcher = nil
	}
}
