package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Model credentials. Empty keys fall back to <PROVIDER>_API_KEY.
models:
  claude:
    api_key: "${CLAUDE_API_KEY}"
    api_base: "https://api.anthropic.com/v1"
  openai:
    api_key: "${OPENAI_API_KEY}"
    api_base: "https://api.openai.com/v1"
  deepseek:
    api_key: "${DEEPSEEK_API_KEY}"
    api_base: "https://api.deepseek.com/v1"

# Tool settings, keyed by tool name.
tools:
  terminal:
    timeout: 30s
    work_dir: "./workspace"
  file_save:
    output_dir: "./workspace"
  google_search:
    api_key: "${SERPER_API_KEY}"

teams_dir: teams
results_dir: results
# print, logger, or empty to decide by terminal.
output_mode: ""
# json or sqlite
store: json

log:
  level: info
  format: json
`

const teamTemplate = `name: example_team
description: A small team that researches a topic and writes a short report.
rule: Keep answers concise and cite the facts you found.
max_steps: 20
model:
  provider: openai
  name: gpt-4o-mini
agents:
  - name: researcher
    description: Collects facts about the topic.
    system_prompt: You are a careful researcher. Gather the key facts.
    max_steps: 5
    tools:
      - google_search
      - browser
  - name: writer
    description: Writes the final report from the research.
    system_prompt: You are a technical writer. Produce a clear, short report.
    max_steps: 3
    tools:
      - file_save
`

const envTemplate = `OPENAI_API_KEY=
CLAUDE_API_KEY=
DEEPSEEK_API_KEY=
SERPER_API_KEY=
`

// Init scaffolds a project in dir: config.yaml, .env.example, an example
// team and the workspace directory. Existing files are kept. It returns the
// files it created.
func Init(dir string) ([]string, error) {
	for _, sub := range []string{"", "teams", "workspace"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", filepath.Join(dir, sub), err)
		}
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(dir, DefaultFile), configTemplate},
		{filepath.Join(dir, ".env.example"), envTemplate},
		{filepath.Join(dir, "teams", "example_team.yaml"), teamTemplate},
	}

	var created []string

	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}

		if err := os.WriteFile(f.path, []byte(f.content), 0o600); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", f.path, err)
		}

		created = append(created, f.path)
	}

	return created, nil
}
