// Package filestore implements the job store port on the local filesystem.
// Each job owns one directory holding an atomically written record file
// and an append-only log stream.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Strob0t/MissionForge/internal/domain"
	"github.com/Strob0t/MissionForge/internal/domain/job"
)

const (
	recordFile = "job.json"
	logFile    = "log.ndjson"
)

// Store persists jobs under a root directory:
//
//	<root>/<job-id>/job.json   full record, replaced atomically
//	<root>/<job-id>/log.ndjson append-only log lines
type Store struct {
	root string
}

// New creates the store, ensuring the root directory exists.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{root: root}, nil
}

// SaveJob writes the full record via write-to-temp-then-rename, so a crash
// mid-write never leaves a corrupt record: readers see either the previous
// version or the new one.
func (s *Store) SaveJob(_ context.Context, j *job.Job) error {
	dir := s.jobDir(j.ID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	tmp, err := os.CreateTemp(dir, recordFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp record: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, recordFile)); err != nil {
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

// GetJob returns the job or domain.ErrNotFound.
func (s *Store) GetJob(_ context.Context, id string) (*job.Job, error) {
	data, err := os.ReadFile(filepath.Join(s.jobDir(id), recordFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read job %s: %w", id, err)
	}

	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &j, nil
}

// ListJobs returns all persisted jobs, newest first. Directories with an
// unreadable record are skipped rather than failing the whole listing.
func (s *Store) ListJobs(ctx context.Context) ([]job.Job, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	jobs := make([]job.Job, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		j, err := s.GetJob(ctx, e.Name())
		if err != nil {
			continue
		}
		jobs = append(jobs, *j)
	}

	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs, nil
}

// AppendLog appends one line to the job's log stream. Embedded newlines
// are flattened so the cursor math in ReadLog stays line-based.
func (s *Store) AppendLog(_ context.Context, jobID, line string) error {
	dir := s.jobDir(jobID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, logFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	line = strings.ReplaceAll(line, "\n", " ")
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// ReadLog returns log lines at or after cursor and the next cursor value.
// A cursor at the end of the stream yields no lines. Polling is safe: the
// log is append-only, so a cursor never goes stale.
func (s *Store) ReadLog(_ context.Context, jobID string, cursor int) ([]string, int, error) {
	data, err := os.ReadFile(filepath.Join(s.jobDir(jobID), logFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cursor, nil // no log yet
		}
		return nil, 0, fmt.Errorf("read log: %w", err)
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(lines) {
		return nil, len(lines), nil
	}
	out := make([]string, len(lines)-cursor)
	copy(out, lines[cursor:])
	return out, len(lines), nil
}

func (s *Store) jobDir(id string) string {
	return filepath.Join(s.root, filepath.Base(id))
}
