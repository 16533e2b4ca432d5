package store

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/agentteam/core"
)

// TimestampLayout formats Record.Timestamp and result file names.
const TimestampLayout = "20060102_150405"

// ErrNotFound is returned when a stored run does not exist.
var ErrNotFound = errors.New("store: result not found")

// Store is implemented by every backend.
type Store interface {
	// Save persists r and returns a reference usable with Get.
	Save(ctx context.Context, r *core.TeamResult) (string, error)
	// Get loads a stored run by reference.
	Get(ctx context.Context, ref string) (*Record, error)
	// List returns summaries, newest first. An empty team lists all teams.
	List(ctx context.Context, team string) ([]Summary, error)
	Close() error
}

// LogEntry is one agent turn.
type LogEntry struct {
	AgentID     string     `json:"agent_id"`
	AgentName   string     `json:"agent_name"`
	Subtask     string     `json:"subtask"`
	FinalAnswer string     `json:"final_answer"`
	Error       string     `json:"error,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	// ExecutionTime is in seconds.
	ExecutionTime float64            `json:"execution_time"`
	Actions       []core.AgentAction `json:"actions"`
}

// Metadata carries run statistics.
type Metadata struct {
	TaskID string `json:"task_id"`
	// Duration is in seconds.
	Duration   float64    `json:"duration"`
	AgentsUsed []string   `json:"agents_used"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
}

// Record is the persisted form of a team run.
type Record struct {
	ID           string     `json:"id"`
	Timestamp    string     `json:"timestamp"`
	Team         string     `json:"team"`
	Task         string     `json:"task"`
	Status       string     `json:"status"`
	FinalOutput  string     `json:"final_output"`
	ExecutionLog []LogEntry `json:"execution_log"`
	Metadata     Metadata   `json:"metadata"`
}

// Summary is the listing view of a Record.
type Summary struct {
	Ref       string `json:"ref"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Team      string `json:"team"`
	Task      string `json:"task"`
	Status    string `json:"status"`
}

// NewRecord converts r, stamping it with now.
func NewRecord(r *core.TeamResult, now time.Time) *Record {
	rec := &Record{
		ID:           r.ID,
		Timestamp:    now.Format(TimestampLayout),
		Team:         r.TeamName,
		Status:       string(r.Status),
		FinalOutput:  r.FinalOutput,
		ExecutionLog: make([]LogEntry, 0, len(r.AgentResults)),
		Metadata: Metadata{
			TaskID:     r.ID,
			Duration:   r.ExecutionTime().Seconds(),
			AgentsUsed: []string{},
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
		},
	}

	if r.Task != nil {
		rec.Task = r.Task.Content
		rec.Metadata.TaskID = r.Task.ID
	}

	seen := map[string]bool{}

	for _, ar := range r.AgentResults {
		actions := make([]core.AgentAction, len(ar.Actions))
		copy(actions, ar.Actions)

		rec.ExecutionLog = append(rec.ExecutionLog, LogEntry{
			AgentID:       ar.AgentID,
			AgentName:     ar.AgentName,
			Subtask:       ar.Subtask,
			FinalAnswer:   ar.FinalAnswer,
			Error:         ar.Error,
			StartTime:     ar.StartTime,
			EndTime:       ar.EndTime,
			ExecutionTime: ar.ExecutionTime().Seconds(),
			Actions:       actions,
		})

		if !seen[ar.AgentName] {
			seen[ar.AgentName] = true
			rec.Metadata.AgentsUsed = append(rec.Metadata.AgentsUsed, ar.AgentName)
		}
	}

	return rec
}

// Summary returns the listing view of the record under ref.
func (r *Record) Summary(ref string) Summary {
	return Summary{
		Ref:       ref,
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Team:      r.Team,
		Task:      r.Task,
		Status:    r.Status,
	}
}
