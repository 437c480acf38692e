// Package subtask defines the units of work fanned out by the parallel
// executor within one mission round.
package subtask

import (
	"context"
	"time"
)

// Status represents the runtime state of a sub-task.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

// Func is the body of a sub-task. It must honor ctx cancellation: the
// executor wraps each call with the spec's timeout.
type Func func(ctx context.Context) (string, error)

// Spec declares one sub-task and its dependencies within a batch.
// Names must be unique per batch; DependsOn refers to sibling names.
type Spec struct {
	Name      string
	DependsOn []string
	Timeout   time.Duration
	Run       Func
}

// Result is the terminal record of one sub-task execution.
type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
