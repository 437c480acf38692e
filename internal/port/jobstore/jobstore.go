// Package jobstore defines the persistence port for jobs and their
// append-only log streams.
package jobstore

import (
	"context"

	"github.com/Strob0t/MissionForge/internal/domain/job"
)

// Store persists job records and log streams. Each job record has exactly
// one owning worker for its lifetime, so implementations must make single
// record writes atomic but need not serialize writers per record.
type Store interface {
	// SaveJob writes the full job record. The write must be atomic: a
	// crash mid-write never leaves a corrupt or partial record behind.
	SaveJob(ctx context.Context, j *job.Job) error

	// GetJob returns the job or domain.ErrNotFound.
	GetJob(ctx context.Context, id string) (*job.Job, error)

	// ListJobs returns all persisted jobs, newest first.
	ListJobs(ctx context.Context) ([]job.Job, error)

	// AppendLog appends one line to the job's log stream.
	AppendLog(ctx context.Context, jobID, line string) error

	// ReadLog returns log lines at or after cursor plus the next cursor.
	// Safe to poll repeatedly; an up-to-date cursor yields no lines.
	ReadLog(ctx context.Context, jobID string, cursor int) ([]string, int, error)
}
