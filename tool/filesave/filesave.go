// Package filesave provides a post-process tool that stores an agent's final
// answer on disk.
package filesave

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/tool"
)

// Name is the registered tool name.
const Name = "file_save"

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// Options configure the tool.
type Options struct {
	OutputDir string `yaml:"output_dir"`
	Extension string `yaml:"extension"`
	// Now is used for file name timestamps.
	Now func() time.Time `yaml:"-"`
}

// FileSave writes the final answer into OutputDir/<task>/<agent>_<time><ext>.
type FileSave struct {
	opts Options
}

// New creates the tool.
func New(optFns ...func(o *Options)) *FileSave {
	opts := Options{OutputDir: "workspace", Extension: ".md", Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &FileSave{opts: opts}
}

// Factory builds the tool from config settings.
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
func (t *FileSave) Name() string { return Name }

// Description implements tool.Tool.
func (t *FileSave) Description() string {
	return "Save the agent's final answer to a file in the workspace."
}

// Parameters implements tool.Tool. The tool takes no arguments.
func (t *FileSave) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// Stage implements tool.Tool.
func (t *FileSave) Stage() tool.Stage { return tool.PostProcess }

// Execute implements tool.Tool.
func (t *FileSave) Execute(_ context.Context, tc *tool.Context, _ map[string]any) tool.Result {
	if tc == nil || strings.TrimSpace(tc.FinalAnswer) == "" {
		return tool.Failure("no final answer to save")
	}

	dir := filepath.Join(t.opts.OutputDir, slug(firstNonEmpty(tc.TaskShortName, tc.TeamName, "task")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return tool.Failure(fmt.Sprintf("create directory: %v", err))
	}

	name := fmt.Sprintf("%s_%s%s", slug(firstNonEmpty(tc.AgentName, "agent")), t.opts.Now().Format("20060102_150405"), t.opts.Extension)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(tc.FinalAnswer), 0o644); err != nil {
		return tool.Failure(fmt.Sprintf("write file: %v", err))
	}

	tc.Log().Info("tool.file_save.written", "path", path, "bytes", len(tc.FinalAnswer))

	return tool.Success(map[string]any{"file_path": path})
}

func slug(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "_")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
