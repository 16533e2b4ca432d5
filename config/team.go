package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Team definition defaults.
const (
	DefaultTeamName     = "unnamed_team"
	DefaultTeamMaxSteps = 20
	DefaultProvider     = "openai"
	DefaultModel        = "gpt-4o-mini"
)

// ModelRef names a model. In YAML it is either a bare model name or a
// mapping with provider and name.
type ModelRef struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
}

// UnmarshalYAML accepts both the scalar and the mapping form. The mapping
// form defaults to openai and gpt-4o-mini.
func (m *ModelRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*m = ModelRef{Name: strings.TrimSpace(node.Value)}
		return nil
	case yaml.MappingNode:
		type plain ModelRef

		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}

		*m = ModelRef(p)

		if m.Provider == "" {
			m.Provider = DefaultProvider
		}

		if m.Name == "" {
			m.Name = DefaultModel
		}

		return nil
	default:
		return fmt.Errorf("line %d: model must be a name or a mapping", node.Line)
	}
}

// IsZero reports whether no model was given.
func (m ModelRef) IsZero() bool { return m.Name == "" && m.Provider == "" }

// String renders the reference for logs.
func (m ModelRef) String() string {
	if m.Provider == "" {
		return m.Name
	}

	return m.Provider + "/" + m.Name
}

// AgentConfig defines one team member.
type AgentConfig struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	SystemPrompt string   `yaml:"system_prompt"`
	Tools        []string `yaml:"tools"`
	// MaxSteps caps this agent's own steps; 0 leaves only the team budget.
	MaxSteps int `yaml:"max_steps"`
	// Model overrides the team model for this agent.
	Model ModelRef `yaml:"model"`
}

// TeamConfig defines a team.
type TeamConfig struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Rule        string        `yaml:"rule"`
	MaxSteps    int           `yaml:"max_steps"`
	Model       ModelRef      `yaml:"model"`
	OutputMode  string        `yaml:"output_mode"`
	Agents      []AgentConfig `yaml:"agents"`

	// Path is the file the team was loaded from.
	Path string `yaml:"-"`
}

// ParseTeam decodes a team definition and applies defaults.
func ParseTeam(data []byte) (*TeamConfig, error) {
	var tc TeamConfig
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse team: %w", err)
	}

	tc.applyDefaults()

	if err := tc.Validate(); err != nil {
		return nil, err
	}

	return &tc, nil
}

func (tc *TeamConfig) applyDefaults() {
	if tc.Name == "" {
		tc.Name = DefaultTeamName
	}

	if tc.MaxSteps <= 0 {
		tc.MaxSteps = DefaultTeamMaxSteps
	}

	if tc.Model.IsZero() {
		tc.Model = ModelRef{Provider: DefaultProvider, Name: DefaultModel}
	}
}

// Validate checks member names. Names must be unique because successor
// decisions exclude the current member by name.
func (tc *TeamConfig) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(tc.Agents))

	for i, a := range tc.Agents {
		switch {
		case strings.TrimSpace(a.Name) == "":
			errs = append(errs, fmt.Errorf("agents[%d]: name is required", i))
		case seen[a.Name]:
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate name %q", i, a.Name))
		}

		seen[a.Name] = true

		if a.MaxSteps < 0 {
			errs = append(errs, fmt.Errorf("agents[%d]: max_steps must not be negative", i))
		}
	}

	switch tc.OutputMode {
	case "", "print", "logger":
	default:
		errs = append(errs, fmt.Errorf("unknown output_mode %q", tc.OutputMode))
	}

	return errors.Join(errs...)
}

// LoadTeam reads one team file.
func LoadTeam(path string) (*TeamConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read team %s: %w", path, err)
	}

	tc, err := ParseTeam(data)
	if err != nil {
		return nil, fmt.Errorf("invalid team %s: %w", path, err)
	}

	tc.Path = path

	return tc, nil
}

// TeamFiles lists the YAML files in dir sorted by name. A missing directory
// yields no files.
func TeamFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read teams dir %s: %w", dir, err)
	}

	var files []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	sort.Strings(files)

	return files, nil
}

// TeamNames returns the file stems of the team definitions in dir.
func TeamNames(dir string) ([]string, error) {
	files, err := TeamFiles(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(filepath.Base(f), filepath.Ext(f)))
	}

	return names, nil
}

// LoadTeams reads every team definition in dir.
func LoadTeams(dir string) ([]*TeamConfig, error) {
	files, err := TeamFiles(dir)
	if err != nil {
		return nil, err
	}

	teams := make([]*TeamConfig, 0, len(files))

	for _, f := range files {
		tc, err := LoadTeam(f)
		if err != nil {
			return nil, err
		}

		teams = append(teams, tc)
	}

	return teams, nil
}

// FindTeam loads dir/<name>.yaml, or .yml, or a path given directly.
func FindTeam(dir, name string) (*TeamConfig, error) {
	if ext := filepath.Ext(name); (ext == ".yaml" || ext == ".yml") && fileExists(name) {
		return LoadTeam(name)
	}

	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if fileExists(path) {
			return LoadTeam(path)
		}
	}

	return nil, fmt.Errorf("team %q not found in %s", name, dir)
}
