package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentteam/core"
)

// MemoryStore keeps records in a process local map. It is safe for
// concurrent access and suited to tests and embedding. Records are copied on
// the way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record), now: time.Now}
}

// Save stores a copy of r under its id.
func (s *MemoryStore) Save(_ context.Context, r *core.TeamResult) (string, error) {
	if r == nil {
		return "", fmt.Errorf("result is required")
	}

	rec := NewRecord(r, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}

	s.records[rec.ID] = cloneRecord(rec)

	return rec.ID, nil
}

// Get returns a copy of the record with id ref.
func (s *MemoryStore) Get(_ context.Context, ref string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	return cloneRecord(rec), nil
}

// List returns summaries, newest first.
func (s *MemoryStore) List(_ context.Context, team string) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.order))

	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.records[s.order[i]]
		if team != "" && rec.Team != team {
			continue
		}

		out = append(out, rec.Summary(rec.ID))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })

	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cloneRecord(r *Record) *Record {
	c := *r
	c.ExecutionLog = make([]LogEntry, len(r.ExecutionLog))

	for i, e := range r.ExecutionLog {
		e.Actions = append([]core.AgentAction(nil), e.Actions...)
		c.ExecutionLog[i] = e
	}

	c.Metadata.AgentsUsed = append([]string(nil), r.Metadata.AgentsUsed...)

	return &c
}
