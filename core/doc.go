// Package core provides the foundational domain types shared by the
// agentteam execution engine:
//
//   - Task (the user request and its status transitions)
//   - AgentAction / ToolResult (append-only records of what an agent did)
//   - AgentExecutionResult / TeamResult (per-agent and per-run aggregates)
//   - AgentResult (outcome of one agent loop)
//   - StepCounter (the team-wide step budget)
//   - Error kinds (transport, protocol, tool, budget, unhandled fault)
//
// The package has no knowledge of models, tools or orchestration. It only
// holds data and the rules for mutating it.
package core
