package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTeam(t *testing.T) {
	tc, err := ParseTeam([]byte(`
name: research
description: finds things
rule: be brief
max_steps: 8
model: claude-3-5-sonnet-20241022
output_mode: logger
agents:
  - name: searcher
    description: searches
    system_prompt: Search well.
    tools: [google_search, browser]
    max_steps: 3
  - name: writer
    model:
      provider: deepseek
      name: deepseek-chat
`))
	require.NoError(t, err)

	assert.Equal(t, "research", tc.Name)
	assert.Equal(t, "be brief", tc.Rule)
	assert.Equal(t, 8, tc.MaxSteps)
	assert.Equal(t, ModelRef{Name: "claude-3-5-sonnet-20241022"}, tc.Model)
	assert.Equal(t, "logger", tc.OutputMode)
	require.Len(t, tc.Agents, 2)
	assert.Equal(t, []string{"google_search", "browser"}, tc.Agents[0].Tools)
	assert.Equal(t, 3, tc.Agents[0].MaxSteps)
	assert.True(t, tc.Agents[0].Model.IsZero())
	assert.Equal(t, ModelRef{Provider: "deepseek", Name: "deepseek-chat"}, tc.Agents[1].Model)
	assert.Equal(t, "deepseek/deepseek-chat", tc.Agents[1].Model.String())
}

func TestParseTeam_Defaults(t *testing.T) {
	tc, err := ParseTeam([]byte("agents:\n  - name: solo\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultTeamName, tc.Name)
	assert.Equal(t, DefaultTeamMaxSteps, tc.MaxSteps)
	assert.Equal(t, ModelRef{Provider: DefaultProvider, Name: DefaultModel}, tc.Model)

	tc, err = ParseTeam([]byte("name: x\nmodel: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, ModelRef{Provider: DefaultProvider, Name: DefaultModel}, tc.Model)

	tc, err = ParseTeam([]byte("name: x\nmodel: {name: gpt-4o}\n"))
	require.NoError(t, err)
	assert.Equal(t, ModelRef{Provider: DefaultProvider, Name: "gpt-4o"}, tc.Model)
}

func TestParseTeam_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":         "agents: [",
		"model list":     "model: [a, b]",
		"missing name":   "agents:\n  - description: nameless\n",
		"duplicate name": "agents:\n  - name: a\n  - name: a\n",
		"negative steps": "agents:\n  - name: a\n    max_steps: -1\n",
		"output mode":    "output_mode: loud\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTeam([]byte(data))
			assert.Error(t, err)
		})
	}
}

func writeTeam(t *testing.T, dir, file, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte("name: "+name+"\nagents:\n  - name: a\n"), 0o600))
}

func TestTeamDiscovery(t *testing.T) {
	dir := t.TempDir()
	writeTeam(t, dir, "b.yml", "beta")
	writeTeam(t, dir, "a.yaml", "alpha")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o750))

	names, err := TeamNames(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	teams, err := LoadTeams(dir)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "alpha", teams[0].Name)
	assert.Equal(t, filepath.Join(dir, "a.yaml"), teams[0].Path)

	tc, err := FindTeam(dir, "b")
	require.NoError(t, err)
	assert.Equal(t, "beta", tc.Name)

	tc, err = FindTeam("elsewhere", filepath.Join(dir, "a.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", tc.Name)

	_, err = FindTeam(dir, "gamma")
	assert.ErrorContains(t, err, `team "gamma" not found`)
}

func TestTeamDiscovery_MissingDir(t *testing.T) {
	names, err := TeamNames(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoadTeams_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("agents: ["), 0o600))

	_, err := LoadTeams(dir)
	assert.ErrorContains(t, err, "bad.yaml")
}
