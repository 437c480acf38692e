package filestore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/MissionForge/internal/adapter/filestore"
	"github.com/Strob0t/MissionForge/internal/domain"
	"github.com/Strob0t/MissionForge/internal/domain/job"
	"github.com/Strob0t/MissionForge/internal/domain/mission"
)

func newTestStore(t *testing.T) *filestore.Store {
	t.Helper()
	s, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func TestStore_SaveAndGetJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	j := &job.Job{
		ID:        "job-1",
		Spec:      mission.Spec{Task: "refactor parser", Mode: mission.ModeTwoPhase, RoundLimit: 3},
		Status:    job.StatusQueued,
		CreatedAt: time.Now().Truncate(time.Second),
	}
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != job.StatusQueued || got.Spec.Task != "refactor parser" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestStore_GetJobNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetJob(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveJobLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	ctx := context.Background()

	j := &job.Job{ID: "job-1", Status: job.StatusQueued, CreatedAt: time.Now()}
	for range 5 {
		j.Status = job.StatusRunning
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, "job-1"))
	if err != nil {
		t.Fatalf("read job dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestStore_ListJobsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		j := &job.Job{ID: id, Status: job.StatusQueued, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	jobs, err := s.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "new" || jobs[2].ID != "old" {
		t.Fatalf("wrong order: %s, %s, %s", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}
}

func TestStore_LogCursorReturnsOnlyNewLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, line := range []string{"one", "two"} {
		if err := s.AppendLog(ctx, "job-1", line); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	lines, next, err := s.ReadLog(ctx, "job-1", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) != 2 || next != 2 {
		t.Fatalf("expected 2 lines cursor 2, got %d lines cursor %d", len(lines), next)
	}

	// Poll again from the cursor: no new lines.
	lines, next, err = s.ReadLog(ctx, "job-1", next)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) != 0 || next != 2 {
		t.Fatalf("expected no new lines, got %v cursor %d", lines, next)
	}

	if err := s.AppendLog(ctx, "job-1", "three"); err != nil {
		t.Fatalf("append: %v", err)
	}
	lines, next, err = s.ReadLog(ctx, "job-1", next)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) != 1 || lines[0] != "three" || next != 3 {
		t.Fatalf("expected only the new line, got %v cursor %d", lines, next)
	}
}

func TestStore_ReadLogBeforeAnyAppend(t *testing.T) {
	s := newTestStore(t)
	lines, next, err := s.ReadLog(context.Background(), "job-1", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) != 0 || next != 0 {
		t.Fatalf("expected empty log, got %v cursor %d", lines, next)
	}
}

func TestStore_AppendLogFlattensNewlines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendLog(ctx, "job-1", "line with\nembedded newline"); err != nil {
		t.Fatalf("append: %v", err)
	}
	lines, _, err := s.ReadLog(ctx, "job-1", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
}
