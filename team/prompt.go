package team

import "github.com/hupe1980/agentteam/internal/util"

var selectionTemplate = util.MustParseTemplate("selection", `## Role
You are the coordinator for a team of AI agents. Your job is to analyze the user's task and decide which agent in the team should handle it first, and give the subtask that need to be answered by this member.

## Team Information
Team name: {{.TeamName}}
Team description: {{.TeamDescription}}
Team rules: {{.TeamRule}}

## Available Agents
{{.Roster}}

## User Task to Process
The user has provided the following task that needs to be handled:

**Task:** {{.UserTask}}

This task must be analyzed and assigned to the most appropriate agent from the team listed above.

## Instructions
1. Analyze the user's task: "{{.UserTask}}"
2. Select the most appropriate agent based on their expertise
3. Create a specific subtask for that agent
4. Provide a short task name

## Output Format
You MUST respond with valid JSON only. No other text.

{"id": <agent_id_number>, "subtask": "<specific_subtask_for_selected_agent>", "task_short_name": "<short_name>"}`)

type selectionData struct {
	TeamName        string
	TeamDescription string
	TeamRule        string
	Roster          string
	UserTask        string
}
