// Package job defines the Job domain entity: the asynchronous, cancellable
// execution wrapper around one mission.
package job

import (
	"time"

	"github.com/Strob0t/MissionForge/internal/domain/mission"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if the job is in a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal, forward
// transition. Job statuses are monotonic: terminal states never change and
// a running job never returns to queued.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// ReasonInterrupted marks jobs found running with no live worker after a
// process restart.
const ReasonInterrupted = "interrupted"

// Job wraps one mission execution. Exactly one worker owns a job for its
// lifetime; the store never sees concurrent writers for the same job ID.
type Job struct {
	ID         string           `json:"id"`
	MissionID  string           `json:"mission_id,omitempty"`
	Spec       mission.Spec     `json:"spec"`
	Status     Status           `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	Result     *mission.Summary `json:"result,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}
