package memqueue_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/planloop/planloop/internal/adapter/memqueue"
)

func newQueue() *memqueue.Queue {
	return memqueue.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishSubscribe(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	var got []string
	cancel, err := q.Subscribe(ctx, "events.inbound.>", func(_ context.Context, subject string, _ []byte) error {
		got = append(got, subject)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	subjects := []struct {
		subject string
		match   bool
	}{
		{"events.inbound.com.tlt.discord.create-event", true},
		{"events.inbound.com.tlt.discord.rsvp-event", true},
		{"events.inbound", false},
		{"messages.outbound", false},
	}
	for _, s := range subjects {
		if err := q.Publish(ctx, s.subject, []byte("{}")); err != nil {
			t.Fatalf("Publish %s: %v", s.subject, err)
		}
	}

	want := 0
	for _, s := range subjects {
		if s.match {
			want++
		}
	}
	if len(got) != want {
		t.Fatalf("expected %d deliveries, got %d: %v", want, len(got), got)
	}
}

func TestWildcardToken(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	delivered := 0
	_, err := q.Subscribe(ctx, "agent.*", func(context.Context, string, []byte) error {
		delivered++
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	_ = q.Publish(ctx, "agent.status", nil)
	_ = q.Publish(ctx, "agent.status.extra", nil)

	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	delivered := 0
	cancel, err := q.Subscribe(ctx, "timers.fired", func(context.Context, string, []byte) error {
		delivered++
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	_ = q.Publish(ctx, "timers.fired", nil)
	cancel()
	_ = q.Publish(ctx, "timers.fired", nil)

	if delivered != 1 {
		t.Fatalf("expected 1 delivery after cancel, got %d", delivered)
	}
}

func TestClosedQueue(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	if !q.IsConnected() {
		t.Fatal("new queue should report connected")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if q.IsConnected() {
		t.Fatal("closed queue should not report connected")
	}
	if err := q.Publish(ctx, "events.inbound", nil); err == nil {
		t.Fatal("expected error publishing to closed queue")
	}
	if _, err := q.Subscribe(ctx, "events.inbound", nil); err == nil {
		t.Fatal("expected error subscribing to closed queue")
	}
}
