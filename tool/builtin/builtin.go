// Package builtin holds the registration table of the bundled tools.
package builtin

import (
	"github.com/hupe1980/agentteam/tool"
	"github.com/hupe1980/agentteam/tool/browser"
	"github.com/hupe1980/agentteam/tool/filesave"
	"github.com/hupe1980/agentteam/tool/search"
	"github.com/hupe1980/agentteam/tool/terminal"
)

// Register adds every bundled tool to r.
func Register(r *tool.Registry) error {
	table := []struct {
		desc    tool.Descriptor
		factory tool.Factory
	}{
		{search.Descriptor(), search.Factory},
		{filesave.Descriptor(), filesave.Factory},
		{browser.Descriptor(), browser.Factory},
		{terminal.Descriptor(), terminal.Factory},
	}

	for _, e := range table {
		if err := r.Register(e.desc, e.factory); err != nil {
			return err
		}
	}

	return nil
}

// NewRegistry returns a registry holding the bundled tools.
func NewRegistry() *tool.Registry {
	r := tool.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}

	return r
}
