package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/tool"
)

var reactTemplate = util.MustParseTemplate("react", `## Role
Your role: {{.Name}}
Your role description: {{.Description}}
You are handling the subtask: {{.Subtask}}, as a member of the {{.TeamName}} team. Please answer in the same language as the user's original task.

## Available tools
{{.Tools}}

## Reply format
Please respond strictly in the following format:
<thought> Analyze the current situation and the next action </thought>
<action> Tool name, must be one of available tools. The value can be null when final_answer is obtained </action>
<action_input> Tool parameters in JSON format </action_input>
<final_answer> The final answer should be as detailed and rich as possible. If there is no final answer, do not show this label </final_answer>

## Attention
1. The content of thought and final_answer needs to be consistent with the language used by the user original task.
2. Make only one decision at a time. Do not generate multiple tool calls in a single response.
{{.ExtData}}

## Current task context:
Current time: {{.Now}}
Team description: {{.TeamDescription}}

## Other agents output:
{{.Outputs}}

## Your sub task
{{.Subtask}}`)

var decisionTemplate = util.MustParseTemplate("decision", `## Role
You are a team decision expert, please decide whether the next member in the team is needed to complete the user task. If necessary, select the most suitable member and give the subtask that needs to be answered by this member. If not, return {"id": -1} directly.

## Team
Team Name: {{.TeamName}}
Team Description: {{.TeamDescription}}
Team Rules: {{.TeamRule}}

## List of available members:
{{.Roster}}

## Members have replied
{{.Outputs}}

## Attention
1. You need to determine whether the next member is needed and which member is the most suitable based on the user's question and the rules of the team
2. If you think the answers given by the executed members are able to answer the user's questions, return {"id": -1} immediately; otherwise, select the next suitable member ID and subtask content in the following JSON structure which can be parsed directly by json.loads():
{"id": <member_id>, "subtask": ""}
3. Always reply in JSON format which can be parsed directly by json.loads()

## User Original Task:
{{.UserTask}}`)

type reactData struct {
	Name            string
	Description     string
	Subtask         string
	TeamName        string
	TeamDescription string
	Tools           string
	ExtData         string
	Now             string
	Outputs         string
}

type decisionData struct {
	TeamName        string
	TeamDescription string
	TeamRule        string
	Roster          string
	Outputs         string
	UserTask        string
}

// timeLayout renders the current time in prompts.
const timeLayout = "2006-01-02 15:04:05"

// historyHeader separates the role prompt from the step history.
const historyHeader = "\n\n## Historical steps:\n"

// formatTools lists the pre-process tools a model may call.
func formatTools(tools []tool.Tool) string {
	lines := make([]string, 0, len(tools))

	for _, t := range tools {
		if t.Stage() != tool.PreProcess {
			continue
		}

		params, err := json.Marshal(t.Parameters())
		if err != nil {
			params = []byte("{}")
		}

		lines = append(lines, fmt.Sprintf("%s: %s (parameters: %s)", t.Name(), t.Description(), params))
	}

	return strings.Join(lines, "\n")
}

// formatHistory renders the most recent window entries as indented JSON.
func formatHistory(history []Step, window int) string {
	if len(history) == 0 {
		return ""
	}

	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if err := enc.Encode(history); err != nil {
		return ""
	}

	return "\n" + strings.TrimRight(buf.String(), "\n")
}

// toJSON renders v for console and log output.
func toJSON(v any) string {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}

	return strings.TrimRight(buf.String(), "\n")
}
