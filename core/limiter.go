package core

import (
	"fmt"
	"sync"
)

// StepCounter is the team-wide step budget shared by every agent of a run.
// Agents call Acquire before each step. The mutex only matters for
// callers that run agents concurrently; the engine itself is sequential.
type StepCounter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepCounter creates a counter with a cap. If max <= 0, steps are unlimited.
func NewStepCounter(max int) *StepCounter {
	return &StepCounter{max: max}
}

// Acquire claims one step. When the counter already meets the cap it returns
// a budget error and leaves the counter untouched.
func (sc *StepCounter) Acquire() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.max > 0 && sc.count >= sc.max {
		return NewBudgetError("step", fmt.Sprintf("team max steps (%d) reached", sc.max))
	}

	sc.count++

	return nil
}

// Exhausted reports whether the next Acquire would fail.
func (sc *StepCounter) Exhausted() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.max > 0 && sc.count >= sc.max
}

// Count returns the number of steps taken so far.
func (sc *StepCounter) Count() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.count
}

// Max returns the configured cap (0 for unlimited).
func (sc *StepCounter) Max() int { return sc.max }

// Remaining returns how many steps are left before hitting the cap.
func (sc *StepCounter) Remaining() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.max <= 0 {
		return -1 // unlimited
	}

	return sc.max - sc.count
}

// Reset sets the counter back to zero for a new run.
func (sc *StepCounter) Reset() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.count = 0
}
