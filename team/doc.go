// Package team implements the orchestration layer of a multi-agent run.
//
// The Orchestrator owns a TeamContext and drives one chain per task: the
// team model picks the first member and its subtask, each member works its
// subtask to a final answer and then asks the team model whether another
// member should continue. The chain ends when no successor is chosen, the
// choice is out of range or the team-wide step budget is used up.
//
// # Responsibilities (abridged)
//   - Initial agent selection and hand-off between members
//   - Aggregation of per-agent results into a TeamResult
//   - Run lifecycle: streaming variant, cancellation, tool cleanup
//   - Persistence of the finished result through an optional Store
//
// Failures never escape Run: selection errors and panics become a failed
// TeamResult.
package team
