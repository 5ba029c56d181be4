//go:build load

// Package load contains load tests that are excluded from regular CI runs.
// Run with: go test -tags load -count=1 -timeout 60s ./tests/load/
package load

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/planloop/planloop/internal/config"
	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/port/delivery"
	"github.com/planloop/planloop/internal/service"
)

type countingSender struct {
	sent atomic.Int64
}

func (s *countingSender) Name() string { return "counting" }

func (s *countingSender) Send(context.Context, delivery.Outbound) error {
	s.sent.Add(1)
	return nil
}

// TestSchedulerWindowUnderLoad schedules from 10 goroutines x 100
// messages against a 50-per-minute window and drains once. The drain
// happens near-instantly, so the shared send history must hold the
// released count to the window cap regardless of contention.
func TestSchedulerWindowUnderLoad(t *testing.T) {
	sender := &countingSender{}
	sched := service.NewSchedulerService(
		config.Rate{Window: time.Minute, MaxPerWindow: 50},
		sender,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	const goroutines = 10
	const msgsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := range goroutines {
		go func() {
			defer wg.Done()
			for i := range msgsPerGoroutine {
				sched.Schedule(agent.MessageToSend{
					ID:        fmt.Sprintf("m-%d-%d", g, i),
					ChannelID: "chan-1",
					Content:   "ping",
					Priority:  agent.PriorityNormal,
				})
			}
		}()
	}
	wg.Wait()

	released := sched.Drain(context.Background())

	if released != 50 {
		t.Errorf("Drain() released %d, want exactly the window cap 50", released)
	}
	if got := sender.sent.Load(); got != int64(released) {
		t.Errorf("sender saw %d sends, drain reported %d", got, released)
	}
	if pending := sched.PendingCount(); pending != goroutines*msgsPerGoroutine-released {
		t.Errorf("PendingCount() = %d, want %d deferred", pending, goroutines*msgsPerGoroutine-released)
	}

	// A second drain inside the same window must release nothing new.
	if again := sched.Drain(context.Background()); again != 0 {
		t.Errorf("second Drain() in-window released %d, want 0", again)
	}
}

// TestSchedulerUrgentHeadroom fills the normal-priority window, then
// checks urgent messages still get through on the 2x admission factor.
func TestSchedulerUrgentHeadroom(t *testing.T) {
	sender := &countingSender{}
	sched := service.NewSchedulerService(
		config.Rate{Window: time.Minute, MaxPerWindow: 10},
		sender,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	for i := range 20 {
		sched.Schedule(agent.MessageToSend{
			ID:       fmt.Sprintf("n-%d", i),
			Priority: agent.PriorityNormal,
		})
	}
	if got := sched.Drain(context.Background()); got != 10 {
		t.Fatalf("normal drain released %d, want 10", got)
	}

	for i := range 20 {
		sched.Schedule(agent.MessageToSend{
			ID:       fmt.Sprintf("u-%d", i),
			Priority: agent.PriorityUrgent,
		})
	}
	// Urgent cap is 20 against a shared history already holding 10.
	if got := sched.Drain(context.Background()); got != 10 {
		t.Errorf("urgent drain released %d, want 10 more against the shared history", got)
	}
}
