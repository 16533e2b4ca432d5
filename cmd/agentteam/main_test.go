package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentteam"
	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/internal/testutil"
	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/model/provider"
)

type harness struct {
	dir    string
	config string
	stdin  *bytes.Buffer
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	model  *model.MockClient
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("APP_ENV", "")

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "teams"), 0o750))

	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("store: json\nresults_dir: results\nmetrics_file: metrics.prom\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "teams", "solo.yaml"), []byte(`
name: solo
description: a one-member team
agents:
  - name: worker
    description: does the work
`), 0o600))

	return &harness{
		dir:    dir,
		config: cfg,
		stdin:  &bytes.Buffer{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		model:  model.NewMockClient("team"),
	}
}

func (h *harness) run(args ...string) error {
	h.stdout.Reset()

	e := &env{
		stdin:  h.stdin,
		stdout: h.stdout,
		stderr: h.stderr,
		runtimeOptions: []func(o *agentteam.Options){func(o *agentteam.Options) {
			o.TeamModel = func(string, string, map[string]provider.Settings) (model.Client, error) {
				return h.model, nil
			}
		}},
	}

	return run(append([]string{"-c", h.config}, args...), e)
}

// -------------------- run --------------------

func TestRunCommand_Completed(t *testing.T) {
	h := newHarness(t)

	answer := strings.Repeat("x", 250)
	h.model.AddReply(`{"id": 0, "subtask": "do it"}`, testutil.Answer("easy", answer))

	require.NoError(t, h.run("run", "solo", "-t", "write something"))

	out := h.stdout.String()
	assert.Contains(t, out, "✓ Team solo completed the task")
	assert.Contains(t, out, "Summary: "+strings.Repeat("x", summaryLimit)+"...\n")
	assert.Contains(t, out, filepath.Join(h.dir, "results", "solo_"))

	files, err := filepath.Glob(filepath.Join(h.dir, "results", "solo_*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.FileExists(t, filepath.Join(h.dir, "metrics.prom"))

	require.NoError(t, h.run("results"))
	assert.Contains(t, h.stdout.String(), "write something")
	assert.Contains(t, h.stdout.String(), "completed")

	require.NoError(t, h.run("show", files[0]))
	assert.Contains(t, h.stdout.String(), `"final_output": "`+answer+`"`)
}

func TestRunCommand_Failed(t *testing.T) {
	h := newHarness(t)
	h.model.AddReply(`{"id": 7, "subtask": "nobody"}`)

	err := h.run("run", "solo", "-t", "task")
	require.ErrorIs(t, err, errRunFailed)

	out := h.stdout.String()
	assert.Contains(t, out, "✗ Team solo failed")
	assert.Contains(t, out, "Error: No output available")
}

func TestRunCommand_PromptsForTask(t *testing.T) {
	h := newHarness(t)
	h.stdin.WriteString("prompted task\n")
	h.model.AddReply(`{"id": 0, "subtask": "s"}`, testutil.Answer("t", "done"))

	require.NoError(t, h.run("run", "solo"))

	assert.Contains(t, h.stdout.String(), "Enter task description: ")

	reqs := h.model.Requests()
	require.NotEmpty(t, reqs)
	assert.Contains(t, reqs[0].Messages[0].Content, "prompted task")
}

func TestRunCommand_Errors(t *testing.T) {
	h := newHarness(t)

	assert.ErrorContains(t, h.run("run", "missing", "-t", "x"), `team "missing" not found`)
	assert.ErrorContains(t, h.run("run", "solo", "-t", "x", "-o", "loud"), "unknown output mode")
	assert.ErrorContains(t, h.run("run", "solo"), "task description is required")
	assert.Empty(t, h.model.Requests())
}

// -------------------- list / init / tools --------------------

func TestInitAndList(t *testing.T) {
	h := newHarness(t)
	parent := t.TempDir()

	require.NoError(t, h.run("init", "proj", "-p", parent))
	assert.Contains(t, h.stdout.String(), "initialized")
	assert.FileExists(t, filepath.Join(parent, "proj", "teams", "example_team.yaml"))

	h.config = filepath.Join(parent, "proj", "config.yaml")

	require.NoError(t, h.run("list"))
	assert.Contains(t, h.stdout.String(), "example_team")
	assert.Contains(t, h.stdout.String(), "openai/gpt-4o-mini")
}

func TestListEmpty(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.Remove(filepath.Join(h.dir, "teams", "solo.yaml")))

	require.NoError(t, h.run("list"))
	assert.Contains(t, h.stdout.String(), "No teams found")

	require.NoError(t, h.run("results"))
	assert.Contains(t, h.stdout.String(), "No results found")
}

func TestToolsCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("tools"))

	for _, name := range []string{"terminal", "file_save", "browser", "google_search"} {
		assert.Contains(t, h.stdout.String(), name)
	}
}

// -------------------- helpers --------------------

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "äöü...", truncate("äöüß", 3))
}

func TestOutputMode(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, agent.OutputLogger, outputMode("", "", "", &buf), "non-terminal defaults to logger")
	assert.Equal(t, agent.OutputPrint, outputMode("print", "logger", "logger", &buf))
	assert.Equal(t, agent.OutputLogger, outputMode("", "print", "logger", &buf), "team beats config")
	assert.Equal(t, agent.OutputPrint, outputMode("", "print", "", &buf))
}
