package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Strob0t/MissionForge/internal/config"
	"github.com/Strob0t/MissionForge/internal/domain/subtask"
)

// ErrCircularDependency is returned when the sub-task graph contains a
// cycle. Rejected before any task starts.
var ErrCircularDependency = errors.New("circular dependency in sub-task graph")

// ErrDuplicateTask is returned when two sub-tasks share a name.
var ErrDuplicateTask = errors.New("duplicate sub-task name")

// ErrUnknownDependency is returned when a sub-task depends on a name not
// present in the batch.
var ErrUnknownDependency = errors.New("unknown sub-task dependency")

// Executor runs the independent side operations of one mission round as a
// dependency-aware batch: tasks are grouped into levels by Kahn's
// algorithm and each level fans out under a bounded semaphore.
type Executor struct {
	maxParallel    int64
	defaultTimeout time.Duration
}

// NewExecutor creates an Executor from config.
func NewExecutor(cfg config.Executor) *Executor {
	maxParallel := cfg.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Executor{maxParallel: int64(maxParallel), defaultTimeout: timeout}
}

// Run executes the batch and returns a result for every declared task.
// Structural problems (cycles, duplicate names, unknown dependencies) are
// rejected before any task starts. With failFast false, one task's failure
// never prevents its siblings from completing; with failFast true, no new
// level is issued after a failure, and unstarted tasks stay pending.
func (e *Executor) Run(ctx context.Context, specs []subtask.Spec, failFast bool) (map[string]subtask.Result, error) {
	levels, err := levelize(specs)
	if err != nil {
		return nil, err
	}

	results := make(map[string]subtask.Result, len(specs))
	for _, s := range specs {
		results[s.Name] = subtask.Result{Name: s.Name, Status: subtask.StatusPending}
	}

	sem := semaphore.NewWeighted(e.maxParallel)
	var mu sync.Mutex
	anyFailed := false

	for _, level := range levels {
		if ctx.Err() != nil {
			break
		}
		if failFast && anyFailed {
			break
		}

		var wg sync.WaitGroup
		for _, s := range level {
			if err := sem.Acquire(ctx, 1); err != nil {
				break // context cancelled while waiting for a slot
			}
			wg.Add(1)
			go func(s subtask.Spec) {
				defer wg.Done()
				defer sem.Release(1)

				res := e.runOne(ctx, s)

				mu.Lock()
				results[s.Name] = res
				if res.Status == subtask.StatusFailed || res.Status == subtask.StatusTimedOut {
					anyFailed = true
				}
				mu.Unlock()
			}(s)
		}
		wg.Wait()
	}

	return results, nil
}

// runOne executes a single sub-task under its timeout. The task body runs
// in its own goroutine so a body that ignores ctx cannot block siblings;
// on timeout the goroutine is abandoned and the task marked timed_out.
func (e *Executor) runOne(ctx context.Context, s subtask.Spec) subtask.Result {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("sub-task panic: %v", r)}
			}
		}()
		out, err := s.Run(taskCtx)
		done <- outcome{output: out, err: err}
	}()

	res := subtask.Result{Name: s.Name, Status: subtask.StatusRunning}
	select {
	case o := <-done:
		res.Duration = time.Since(start)
		if o.err != nil {
			res.Status = subtask.StatusFailed
			res.Error = o.err.Error()
		} else {
			res.Status = subtask.StatusDone
			res.Output = o.output
		}
	case <-taskCtx.Done():
		res.Duration = time.Since(start)
		res.Status = subtask.StatusTimedOut
		res.Error = taskCtx.Err().Error()
		slog.Warn("sub-task timed out", "name", s.Name, "timeout", timeout)
	}
	return res
}

// levelize groups specs into dependency levels: every task in level N only
// depends on tasks in levels < N. Returns ErrCircularDependency when the
// graph has a cycle.
func levelize(specs []subtask.Spec) ([][]subtask.Spec, error) {
	byName := make(map[string]subtask.Spec, len(specs))
	for _, s := range specs {
		if _, exists := byName[s.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTask, s.Name)
		}
		byName[s.Name] = s
	}

	indegree := make(map[string]int, len(specs))
	dependents := make(map[string][]string, len(specs))
	for _, s := range specs {
		indegree[s.Name] += 0
		for _, dep := range s.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("%w: %q depends on %q", ErrUnknownDependency, s.Name, dep)
			}
			indegree[s.Name]++
			dependents[dep] = append(dependents[dep], s.Name)
		}
	}

	var current []string
	for _, s := range specs {
		if indegree[s.Name] == 0 {
			current = append(current, s.Name)
		}
	}

	var levels [][]subtask.Spec
	placed := 0
	for len(current) > 0 {
		level := make([]subtask.Spec, 0, len(current))
		var next []string
		for _, name := range current {
			level = append(level, byName[name])
			placed++
			for _, d := range dependents[name] {
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		levels = append(levels, level)
		current = next
	}

	if placed != len(specs) {
		return nil, ErrCircularDependency
	}
	return levels, nil
}
