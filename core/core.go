package core

import "github.com/google/uuid"

// NewID returns a random UUID string used for tasks, actions and results.
func NewID() string { return uuid.NewString() }
