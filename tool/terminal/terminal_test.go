package terminal

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/agentteam/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
}

func TestTerminal_Execute(t *testing.T) {
	skipOnWindows(t)

	term := New()

	tests := []struct {
		name    string
		params  map[string]any
		isError bool
		check   func(t *testing.T, res tool.Result)
	}{
		{
			name:   "echo",
			params: map[string]any{"command": "echo hello"},
			check: func(t *testing.T, res tool.Result) {
				out := res.Result.(map[string]any)
				assert.Equal(t, "hello\n", out["stdout"])
				assert.Equal(t, 0, out["exit_code"])
			},
		},
		{
			name:    "non-zero exit",
			params:  map[string]any{"command": "echo oops >&2; exit 3"},
			isError: true,
			check: func(t *testing.T, res tool.Result) {
				out := res.Result.(map[string]any)
				assert.Equal(t, 3, out["exit_code"])
				assert.Equal(t, "oops\n", out["stderr"])
				assert.Equal(t, "command exited with code 3", res.ErrorMessage)
			},
		},
		{
			name:    "missing command",
			params:  map[string]any{},
			isError: true,
		},
		{
			name:    "blocked",
			params:  map[string]any{"command": "shutdown now"},
			isError: true,
			check: func(t *testing.T, res tool.Result) {
				assert.Contains(t, res.ErrorMessage, "blocked")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := term.Execute(context.Background(), nil, tt.params)
			assert.Equal(t, tt.isError, res.IsError())
			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}
}

func TestTerminal_TimeoutAndTruncation(t *testing.T) {
	skipOnWindows(t)

	slow := New(func(o *Options) { o.Timeout = 100 * time.Millisecond })
	res := slow.Execute(context.Background(), nil, map[string]any{"command": "sleep 5"})
	require.True(t, res.IsError())
	assert.Contains(t, res.ErrorMessage, "timed out")

	small := New(func(o *Options) { o.MaxOutput = 5 })
	res = small.Execute(context.Background(), nil, map[string]any{"command": "printf 0123456789"})
	require.False(t, res.IsError())
	stdout := res.Result.(map[string]any)["stdout"].(string)
	assert.True(t, strings.HasPrefix(stdout, "01234\n... (truncated)"))
}

func TestFactory(t *testing.T) {
	skipOnWindows(t)

	created, err := Factory(map[string]any{"timeout": "2s", "work_dir": t.TempDir(), "blocked": "ls"})
	require.NoError(t, err)

	term := created.(*Terminal)
	assert.Equal(t, 2*time.Second, term.opts.Timeout)
	assert.Equal(t, []string{"ls"}, term.opts.Blocked)

	res := term.Execute(context.Background(), nil, map[string]any{"command": "ls -la"})
	assert.True(t, res.IsError())

	assert.Equal(t, Name, Descriptor().Name)
	assert.Equal(t, tool.PreProcess, Descriptor().Stage)
}
