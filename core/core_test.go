package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestTask_UpdateStatus(t *testing.T) {
	task := NewTask("  write a poem  ")
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, "write a poem", task.Text())

	created := task.UpdatedAt
	task.UpdateStatus(TaskStatusProcessing)
	assert.Equal(t, TaskStatusProcessing, task.Status)
	assert.False(t, task.UpdatedAt.Before(created))
}

func TestStepCounter(t *testing.T) {
	t.Run("caps without incrementing past max", func(t *testing.T) {
		sc := NewStepCounter(2)
		assert.Equal(t, 0, sc.Count())
		require.NoError(t, sc.Acquire())
		require.NoError(t, sc.Acquire())
		assert.True(t, sc.Exhausted())

		err := sc.Acquire()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBudgetExceeded))
		assert.Equal(t, 2, sc.Count())
		assert.Equal(t, 0, sc.Remaining())
	})

	t.Run("unlimited", func(t *testing.T) {
		sc := NewStepCounter(0)
		for i := 0; i < 50; i++ {
			require.NoError(t, sc.Acquire())
		}
		assert.Equal(t, 50, sc.Count())
		assert.Equal(t, -1, sc.Remaining())
		assert.False(t, sc.Exhausted())
	})

	t.Run("reset", func(t *testing.T) {
		sc := NewStepCounter(1)
		require.NoError(t, sc.Acquire())
		sc.Reset()
		assert.Equal(t, 0, sc.Count())
		assert.NoError(t, sc.Acquire())
	})
}

func TestAgentExecutionResult(t *testing.T) {
	r := NewAgentExecutionResult("0", "writer", "draft")
	assert.Zero(t, r.ExecutionTime())

	r.AddAction(NewAgentAction("0", "writer", ActionThinking, "hmm", nil))
	r.AddAction(NewAgentAction("0", "writer", ActionToolUse, "", &ToolResult{ToolName: "terminal", Status: ToolStatusSuccess}))
	r.AddAction(NewAgentAction("0", "writer", ActionFinalAnswer, "done", nil))
	r.Complete()

	require.Len(t, r.Actions, 3)
	assert.Equal(t, ActionThinking, r.Actions[0].Type)
	assert.Equal(t, ActionToolUse, r.Actions[1].Type)
	assert.Equal(t, "done", r.FinalAnswer)
	assert.NotNil(t, r.EndTime)
	assert.GreaterOrEqual(t, int64(r.ExecutionTime()), int64(0))
}

func TestTeamResult_FinalOutputIsLastNonEmptyAnswer(t *testing.T) {
	task := NewTask("task")
	tr := NewTeamResult("team", task)
	assert.Equal(t, task.ID, tr.ID)
	assert.Equal(t, TeamStatusRunning, tr.Status)

	first := NewAgentExecutionResult("0", "a", "s1")
	first.FinalAnswer = "first"
	second := NewAgentExecutionResult("1", "b", "s2")

	tr.AddAgentResult(first)
	tr.AddAgentResult(second)
	assert.Equal(t, "first", tr.FinalOutput)

	third := NewAgentExecutionResult("0", "a", "s3")
	third.FinalAnswer = "third"
	tr.AddAgentResult(third)
	assert.Equal(t, "third", tr.FinalOutput)

	tr.Complete(TeamStatusCompleted)
	assert.Equal(t, TeamStatusCompleted, tr.Status)
	assert.NotNil(t, tr.EndTime)
}

func TestAgentResult(t *testing.T) {
	ok := AgentSuccess("answer", 3)
	assert.False(t, ok.IsError())
	assert.Equal(t, 3, ok.StepCount)

	bad := AgentError("boom", 1)
	assert.True(t, bad.IsError())
	assert.Equal(t, "Error: boom", bad.FinalAnswer)
	assert.Equal(t, "boom", bad.ErrorMessage)
}

func TestError_Kinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"transport", NewTransportError("model.call", "connection refused", 0), ErrTransport},
		{"protocol", NewProtocolError("team.select", "bad json", errors.New("eof")), ErrProtocol},
		{"tool", NewToolError("tool.execute", "failed", nil), ErrTool},
		{"budget", NewBudgetError("step", "cap"), ErrBudgetExceeded},
		{"fault", NewUnhandledFault("team.run", "nil map"), ErrUnhandledFault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.kind))
			assert.Contains(t, tt.err.Error(), tt.kind.Error())
		})
	}

	cause := errors.New("root cause")
	err := NewUnhandledFault("team.run", cause)
	assert.True(t, errors.Is(err, cause))
}
