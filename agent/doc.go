// Package agent implements the ReasoningAgent, a single team member that
// works a subtask in a bounded ReAct loop, and the TeamContext all members
// of a run share. The package focuses on three concerns:
//
//  1. The step loop: prompt, model call, parse, act (ReasoningAgent.Execute)
//  2. Shared team state: roster, peer outputs and the step budget (TeamContext)
//  3. Hand-off: asking the team model which member should run next
//     (ReasoningAgent.ShouldInvokeNext)
//
// Execution Model:
//   - One agent holds control at a time; agents never run concurrently
//   - Every step first claims a unit of the team-wide step budget
//   - Replies are tagged text (thought, action, action_input, final_answer)
//     decoded by the parser package, streamed to the console in print mode
//   - Pre-process tools are invoked through an action; post-process tools
//     run once after the final answer and read their input from tool.Context
//
// Tool failures never abort the loop. They become observations the model
// sees on the next step. Model failures end the loop with an error result.
package agent
