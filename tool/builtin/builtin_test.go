package builtin

import (
	"testing"

	"github.com/hupe1980/agentteam/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	var names []string
	stages := map[string]tool.Stage{}
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
		stages[d.Name] = d.Stage
	}

	assert.Equal(t, []string{"google_search", "file_save", "browser", "terminal"}, names)
	assert.Equal(t, tool.PostProcess, stages["file_save"])
	assert.Equal(t, tool.PreProcess, stages["terminal"])

	created, err := r.Create("terminal")
	require.NoError(t, err)
	assert.Equal(t, "terminal", created.Name())

	assert.Error(t, Register(r), "double registration fails")
}
