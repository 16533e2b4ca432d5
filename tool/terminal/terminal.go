// Package terminal provides a tool that runs shell commands.
package terminal

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/tool"
)

// Name is the registered tool name.
const Name = "terminal"

const truncatedSuffix = "\n... (truncated)"

// Options configure the terminal tool. They decode from the tools.terminal
// config section.
type Options struct {
	Timeout time.Duration `yaml:"timeout"`
	WorkDir string        `yaml:"work_dir"`
	// Blocked lists command prefixes that are refused.
	Blocked []string `yaml:"blocked"`
	// MaxOutput caps stdout and stderr in characters.
	MaxOutput int `yaml:"max_output"`
}

// Terminal runs one shell command per call.
type Terminal struct {
	opts Options
}

// New creates a terminal tool.
func New(optFns ...func(o *Options)) *Terminal {
	opts := Options{
		Timeout:   60 * time.Second,
		Blocked:   []string{"rm -rf /", "shutdown", "reboot", "mkfs"},
		MaxOutput: 10000,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Terminal{opts: opts}
}

// Factory builds a terminal from config settings.
func Factory(settings map[string]any) (tool.Tool, error) {
	t := New()
	if settings != nil {
		if err := util.Decode(settings, &t.opts); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Descriptor describes the tool without creating it.
func Descriptor() tool.Descriptor { return tool.DescriptorOf(New()) }

// Name implements tool.Tool.
func (t *Terminal) Name() string { return Name }

// Description implements tool.Tool.
func (t *Terminal) Description() string {
	return "Execute a shell command in the local terminal and return its stdout, stderr and exit code."
}

// Parameters implements tool.Tool.
func (t *Terminal) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "The shell command to run"},
		},
		"required": []string{"command"},
	}
}

// Stage implements tool.Tool.
func (t *Terminal) Stage() tool.Stage { return tool.PreProcess }

// Execute implements tool.Tool.
func (t *Terminal) Execute(ctx context.Context, tc *tool.Context, params map[string]any) tool.Result {
	command, _ := params["command"].(string)
	command = strings.TrimSpace(command)

	if command == "" {
		return tool.Failure("parameter 'command' is required")
	}

	for _, b := range t.opts.Blocked {
		if strings.HasPrefix(command, b) {
			return tool.Failure("command is blocked: " + b)
		}
	}

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	cmd := shellCommand(ctx, command)
	cmd.Dir = t.opts.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	tc.Log().Debug("tool.call.start", "tool", Name, "command", command)

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return tool.Failure("command timed out after " + t.opts.Timeout.String())
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return tool.Failure(err.Error())
		}
	}

	out := map[string]any{
		"stdout":    util.Truncate(stdout.String(), t.opts.MaxOutput, truncatedSuffix),
		"stderr":    util.Truncate(stderr.String(), t.opts.MaxOutput, truncatedSuffix),
		"exit_code": exitCode,
	}

	if exitCode != 0 {
		res := tool.Failure("command exited with code " + strconv.Itoa(exitCode))
		res.Result = out

		return res
	}

	return tool.Success(out)
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
