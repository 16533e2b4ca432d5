package core

import (
	"strings"
	"time"
)

// TaskStatus enumerates the lifecycle states of a Task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is the user request handed to a team. It is created once per run and
// only mutated through UpdateStatus.
type Task struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewTask creates a pending task for the given content.
func NewTask(content string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        NewID(),
		Content:   content,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Text returns the trimmed textual content of the task.
func (t *Task) Text() string { return strings.TrimSpace(t.Content) }

// UpdateStatus transitions the task to status and bumps UpdatedAt.
func (t *Task) UpdateStatus(status TaskStatus) {
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
}
