package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/MissionForge/internal/config"
	"github.com/Strob0t/MissionForge/internal/domain/subtask"
	"github.com/Strob0t/MissionForge/internal/service"
)

func newTestExecutor() *service.Executor {
	return service.NewExecutor(config.Executor{MaxParallel: 4, DefaultTimeout: time.Second})
}

func okTask(name string, deps ...string) subtask.Spec {
	return subtask.Spec{
		Name:      name,
		DependsOn: deps,
		Run:       func(context.Context) (string, error) { return name + " done", nil },
	}
}

func TestExecutor_DiamondDependencyOrder(t *testing.T) {
	// A -> B, A -> C, {B,C} -> D. B and C run concurrently after A.
	var mu sync.Mutex
	var order []string
	record := func(name string) subtask.Func {
		return func(context.Context) (string, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return "", nil
		}
	}

	specs := []subtask.Spec{
		{Name: "A", Run: record("A")},
		{Name: "B", DependsOn: []string{"A"}, Run: record("B")},
		{Name: "C", DependsOn: []string{"A"}, Run: record("C")},
		{Name: "D", DependsOn: []string{"B", "C"}, Run: record("D")},
	}

	results, err := newTestExecutor().Run(context.Background(), specs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"A", "B", "C", "D"} {
		if results[name].Status != subtask.StatusDone {
			t.Errorf("task %s: expected done, got %s", name, results[name].Status)
		}
	}
	if order[0] != "A" || order[len(order)-1] != "D" {
		t.Fatalf("expected A first and D last, got %v", order)
	}
}

func TestExecutor_SiblingsRunConcurrently(t *testing.T) {
	// Two siblings block until both have started; passes only if they
	// actually overlap.
	started := make(chan struct{}, 2)
	barrier := make(chan struct{})
	sibling := func(context.Context) (string, error) {
		started <- struct{}{}
		<-barrier
		return "", nil
	}

	go func() {
		<-started
		<-started
		close(barrier)
	}()

	specs := []subtask.Spec{
		{Name: "B", Run: sibling, Timeout: 2 * time.Second},
		{Name: "C", Run: sibling, Timeout: 2 * time.Second},
	}

	results, err := newTestExecutor().Run(context.Background(), specs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results["B"].Status != subtask.StatusDone || results["C"].Status != subtask.StatusDone {
		t.Fatalf("expected both siblings done, got %v / %v", results["B"].Status, results["C"].Status)
	}
}

func TestExecutor_CycleRejectedBeforeStart(t *testing.T) {
	ran := false
	specs := []subtask.Spec{
		{Name: "A", DependsOn: []string{"B"}, Run: func(context.Context) (string, error) { ran = true; return "", nil }},
		{Name: "B", DependsOn: []string{"A"}, Run: func(context.Context) (string, error) { ran = true; return "", nil }},
	}

	_, err := newTestExecutor().Run(context.Background(), specs, false)
	if !errors.Is(err, service.ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
	if ran {
		t.Fatal("no task should start when the graph has a cycle")
	}
}

func TestExecutor_UnknownDependencyRejected(t *testing.T) {
	specs := []subtask.Spec{okTask("A", "missing")}
	_, err := newTestExecutor().Run(context.Background(), specs, false)
	if !errors.Is(err, service.ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestExecutor_DuplicateNameRejected(t *testing.T) {
	specs := []subtask.Spec{okTask("A"), okTask("A")}
	_, err := newTestExecutor().Run(context.Background(), specs, false)
	if !errors.Is(err, service.ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
}

func TestExecutor_FailureIsolation(t *testing.T) {
	specs := []subtask.Spec{
		okTask("lint"),
		{Name: "test", Run: func(context.Context) (string, error) { return "", errors.New("tests failed") }},
		okTask("diff"),
	}

	results, err := newTestExecutor().Run(context.Background(), specs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results["test"].Status != subtask.StatusFailed {
		t.Errorf("expected test failed, got %s", results["test"].Status)
	}
	if results["lint"].Status != subtask.StatusDone || results["diff"].Status != subtask.StatusDone {
		t.Errorf("siblings should complete despite a failure: %v / %v", results["lint"].Status, results["diff"].Status)
	}
}

func TestExecutor_FailFastStopsLaterLevels(t *testing.T) {
	specs := []subtask.Spec{
		{Name: "A", Run: func(context.Context) (string, error) { return "", errors.New("boom") }},
		okTask("B", "A"),
	}

	results, err := newTestExecutor().Run(context.Background(), specs, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results["A"].Status != subtask.StatusFailed {
		t.Errorf("expected A failed, got %s", results["A"].Status)
	}
	if results["B"].Status != subtask.StatusPending {
		t.Errorf("expected B pending under fail_fast, got %s", results["B"].Status)
	}
}

func TestExecutor_TimeoutDoesNotBlockSiblings(t *testing.T) {
	specs := []subtask.Spec{
		{
			Name:    "stuck",
			Timeout: 20 * time.Millisecond,
			Run: func(context.Context) (string, error) {
				time.Sleep(5 * time.Second) // ignores ctx on purpose
				return "", nil
			},
		},
		okTask("quick"),
	}

	start := time.Now()
	results, err := newTestExecutor().Run(context.Background(), specs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("batch blocked on a stuck task: %v", elapsed)
	}
	if results["stuck"].Status != subtask.StatusTimedOut {
		t.Errorf("expected stuck timed_out, got %s", results["stuck"].Status)
	}
	if results["quick"].Status != subtask.StatusDone {
		t.Errorf("expected quick done, got %s", results["quick"].Status)
	}
}

func TestExecutor_PanicIsolatedAsFailure(t *testing.T) {
	specs := []subtask.Spec{
		{Name: "panics", Run: func(context.Context) (string, error) { panic("kaboom") }},
		okTask("safe"),
	}

	results, err := newTestExecutor().Run(context.Background(), specs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results["panics"].Status != subtask.StatusFailed {
		t.Errorf("expected panics failed, got %s", results["panics"].Status)
	}
	if results["safe"].Status != subtask.StatusDone {
		t.Errorf("expected safe done, got %s", results["safe"].Status)
	}
}
