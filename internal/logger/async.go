package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log output. New returns one in both modes so the
// composition root can defer a single Close.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler decouples log call sites from the JSON encoder. Mission
// workers emit a line per job transition and per round; in async mode each
// of those writes costs one channel send. A full queue drops the record
// and counts it instead of stalling a round.
type AsyncHandler struct {
	next  slog.Handler
	queue chan slog.Record
	wg    *sync.WaitGroup
	drops *atomic.Int64
}

// NewAsyncHandler starts workers goroutines draining a queue of the given
// capacity into next.
func NewAsyncHandler(next slog.Handler, capacity, workers int) *AsyncHandler {
	h := &AsyncHandler{
		next:  next,
		queue: make(chan slog.Record, capacity),
		wg:    new(sync.WaitGroup),
		drops: new(atomic.Int64),
	}
	h.wg.Add(workers)
	for range workers {
		go func() {
			defer h.wg.Done()
			for rec := range h.queue {
				_ = h.next.Handle(context.Background(), rec)
			}
		}()
	}
	return h
}

// Enabled delegates to the wrapped handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it when the queue is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler takes records by value
	select {
	case h.queue <- rec:
	default:
		h.drops.Add(1)
	}
	return nil
}

// WithAttrs derives the wrapped handler; the queue, workers, and drop
// counter stay shared with the parent.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(h.next.WithAttrs(attrs))
}

// WithGroup derives the wrapped handler; see WithAttrs.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return h.derive(h.next.WithGroup(name))
}

func (h *AsyncHandler) derive(next slog.Handler) *AsyncHandler {
	return &AsyncHandler{next: next, queue: h.queue, wg: h.wg, drops: h.drops}
}

// Dropped reports how many records were discarded on a full queue.
func (h *AsyncHandler) Dropped() int64 {
	return h.drops.Load()
}

// Close stops accepting records and blocks until the queue is drained.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.wg.Wait()
}
