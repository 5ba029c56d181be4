// Package memqueue is an in-process implementation of the message
// queue port. It stands in for NATS when no broker URL is configured,
// so single-process deployments still move events from ingestion to
// the agent inbox through the same subjects.
package memqueue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/planloop/planloop/internal/port/messagequeue"
)

// ErrClosed is returned by Publish and Subscribe after Close or Drain.
var ErrClosed = errors.New("memqueue: closed")

type subscription struct {
	pattern string
	handler messagequeue.Handler
}

// Queue delivers published messages synchronously to every matching
// subscriber. Handler errors are logged and do not stop delivery.
type Queue struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int
	closed bool
}

// New creates an empty in-process queue.
func New(logger *slog.Logger) *Queue {
	return &Queue{
		logger: logger,
		subs:   make(map[int]subscription),
	}
}

// Publish delivers data to every subscription matching subject.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrClosed
	}
	matched := make([]messagequeue.Handler, 0, len(q.subs))
	for _, sub := range q.subs {
		if subjectMatches(sub.pattern, subject) {
			matched = append(matched, sub.handler)
		}
	}
	q.mu.RUnlock()

	for _, h := range matched {
		if err := h(ctx, subject, data); err != nil {
			q.logger.Warn("memqueue handler failed", "subject", subject, "error", err)
		}
	}
	return nil
}

// Subscribe registers a handler for subjects matching the given
// NATS-style pattern ("*" matches one token, trailing ">" the rest).
func (q *Queue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	id := q.nextID
	q.nextID++
	q.subs[id] = subscription{pattern: subject, handler: handler}

	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}, nil
}

// Drain stops accepting messages. Delivery is synchronous, so there is
// nothing pending to flush.
func (q *Queue) Drain() error {
	return q.Close()
}

// Close drops all subscriptions and rejects further publishes.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.subs = make(map[int]subscription)
	return nil
}

// IsConnected reports whether the queue still accepts messages.
func (q *Queue) IsConnected() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return !q.closed
}

// subjectMatches implements NATS subject matching over dot-separated
// tokens: "*" matches exactly one token, a trailing ">" matches one or
// more remaining tokens.
func subjectMatches(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, tok := range pt {
		if tok == ">" {
			return i < len(st)
		}
		if i >= len(st) {
			return false
		}
		if tok != "*" && tok != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
