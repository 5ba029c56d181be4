package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

// nopCloser is a no-op Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// asyncCore is the buffer shared by an AsyncHandler and the handlers
// derived from it via WithAttrs/WithGroup. Records are enqueued
// non-blocking; when the buffer is full the record is counted and
// discarded rather than stalling the agent loop.
type asyncCore struct {
	records chan queuedRecord
	workers sync.WaitGroup
	dropped atomic.Int64
}

type queuedRecord struct {
	handler slog.Handler
	rec     slog.Record
}

// AsyncHandler decouples log emission from log writing. Each derived
// handler keeps its own inner handler (with its attrs and groups) but
// all of them feed the same buffer and worker set.
type AsyncHandler struct {
	inner slog.Handler
	core  *asyncCore
}

// NewAsyncHandler starts workers draining a buffer of bufSize records
// into inner. Close the handler to flush and stop the workers.
func NewAsyncHandler(inner slog.Handler, bufSize, workers int) *AsyncHandler {
	core := &asyncCore{
		records: make(chan queuedRecord, bufSize),
	}
	for range workers {
		core.workers.Add(1)
		go core.run()
	}
	return &AsyncHandler{inner: inner, core: core}
}

func (c *asyncCore) run() {
	defer c.workers.Done()
	for q := range c.records {
		_ = q.handler.Handle(context.Background(), q.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it when the buffer is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.core.records <- queuedRecord{handler: h.inner, rec: rec}:
	default:
		h.core.dropped.Add(1)
	}
	return nil
}

// WithAttrs derives a handler with extra attrs on the same buffer.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), core: h.core}
}

// WithGroup derives a handler with a group on the same buffer.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), core: h.core}
}

// DroppedCount returns how many records were discarded on a full buffer.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.core.dropped.Load()
}

// Close flushes buffered records and stops the workers. Only call it
// on the handler returned by NewAsyncHandler, and only once.
func (h *AsyncHandler) Close() {
	close(h.core.records)
	h.core.workers.Wait()
}
