package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// sinkHandler captures record messages behind a mutex; an optional delay
// simulates a slow encoder.
type sinkHandler struct {
	mu    sync.Mutex
	msgs  []string
	delay time.Duration
}

func (s *sinkHandler) Enabled(context.Context, slog.Level) bool { return true }

func (s *sinkHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler takes records by value
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, rec.Message)
	s.mu.Unlock()
	return nil
}

func (s *sinkHandler) WithAttrs([]slog.Attr) slog.Handler { return s }
func (s *sinkHandler) WithGroup(string) slog.Handler      { return s }

func (s *sinkHandler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func logRecord(msg string) slog.Record {
	return slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0)
}

func TestAsyncHandlerDeliversRecords(t *testing.T) {
	sink := &sinkHandler{}
	h := NewAsyncHandler(sink, 64, 1)

	if err := h.Handle(context.Background(), logRecord("round 1: plan produced")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	h.Close()

	if got := sink.count(); got != 1 {
		t.Fatalf("records delivered = %d, want 1", got)
	}
	if sink.msgs[0] != "round 1: plan produced" {
		t.Errorf("message = %q", sink.msgs[0])
	}
}

func TestAsyncHandlerConcurrentMissionWorkers(t *testing.T) {
	// Many job workers logging at once; every record must arrive.
	const workers = 50
	const perWorker = 40

	sink := &sinkHandler{}
	h := NewAsyncHandler(sink, workers*perWorker, 4)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range perWorker {
				_ = h.Handle(context.Background(), logRecord(fmt.Sprintf("round %d: reviewer decision", i+1)))
			}
		}()
	}
	wg.Wait()
	h.Close()

	if got := sink.count(); got != workers*perWorker {
		t.Fatalf("records = %d, want %d", got, workers*perWorker)
	}
}

func TestAsyncHandlerDropsWhenSaturated(t *testing.T) {
	sink := &sinkHandler{delay: 10 * time.Millisecond}
	h := NewAsyncHandler(sink, 1, 1)

	for range 40 {
		_ = h.Handle(context.Background(), logRecord("job log flood"))
	}
	h.Close()

	dropped := h.Dropped()
	if dropped == 0 {
		t.Fatal("saturated queue dropped nothing")
	}
	if dropped >= 40 {
		t.Errorf("dropped = %d, at least one record must get through", dropped)
	}
}

func TestAsyncHandlerCloseDrainsQueue(t *testing.T) {
	sink := &sinkHandler{}
	h := NewAsyncHandler(sink, 512, 2)

	const total = 300
	for range total {
		_ = h.Handle(context.Background(), logRecord("job finished"))
	}
	h.Close()

	if got := sink.count(); got != total {
		t.Fatalf("records after close = %d, want %d", got, total)
	}
}

func TestAsyncHandlerWithAttrsSharesQueue(t *testing.T) {
	sink := &sinkHandler{}
	h := NewAsyncHandler(sink, 8, 1)

	derived := h.WithAttrs([]slog.Attr{slog.String("job_id", "j-1")})
	_ = derived.Handle(context.Background(), logRecord("job started"))
	h.Close()

	if got := sink.count(); got != 1 {
		t.Fatalf("records = %d, want 1 via the derived handler", got)
	}
}
