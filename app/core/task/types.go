package task

import (
	"time"

	"brainforge/app/core/workflow"
)

// Lifecycle: pending -> running -> completed | failed. Transitions are
// monotonic; a terminal task never changes again.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Task tracks one end-to-end workflow execution from submission to its
// terminal state. Result is set iff completed, Error iff failed.
type Task struct {
	ID        string
	Topic     string
	Status    string
	Result    *workflow.Result
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Task) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
