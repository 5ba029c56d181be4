package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/service"
)

type staticEventSource struct {
	events []service.ReminderEvent
}

func (s *staticEventSource) UpcomingEvents(_ context.Context, _ time.Duration) ([]service.ReminderEvent, error) {
	return s.events, nil
}

func TestReminderScanEmitsDueKindsOnce(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	source := &staticEventSource{events: []service.ReminderEvent{
		{ID: "evt-1", Title: "Picnic", ChannelID: "chan-1", StartAt: now.Add(2 * time.Hour)},
	}}
	inbox := &recordingInbox{}

	svc := service.NewReminderService(source, inbox, 5*time.Minute, 24*time.Hour, discardLogger())
	svc.SetNow(func() time.Time { return now })

	// Event starts in 2h: 1_day_before (start-24h) and day_of
	// (start-4h) are both due; event_time and followup are not.
	if err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	inbox.mu.Lock()
	got := len(inbox.events)
	inbox.mu.Unlock()
	if got != 2 {
		t.Fatalf("emitted %d triggers, want 2", got)
	}

	// Rescan emits nothing new.
	if err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("second Scan() = %v", err)
	}
	inbox.mu.Lock()
	got = len(inbox.events)
	inbox.mu.Unlock()
	if got != 2 {
		t.Fatalf("after rescan emitted %d triggers, want 2", got)
	}

	// Advance past the start: event_time fires with urgent priority.
	svc.SetNow(func() time.Time { return now.Add(2 * time.Hour) })
	if err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("third Scan() = %v", err)
	}
	inbox.mu.Lock()
	defer inbox.mu.Unlock()
	if len(inbox.events) != 3 {
		t.Fatalf("emitted %d triggers, want 3", len(inbox.events))
	}
	last := inbox.events[2]
	if last.Timer == nil || last.Timer.Kind != "event_time" {
		t.Fatalf("Timer = %+v, want event_time", last.Timer)
	}
	if last.Priority != agent.PriorityUrgent {
		t.Fatalf("Priority = %q, want urgent", last.Priority)
	}
	if last.RawData["channel_id"] != "chan-1" {
		t.Fatalf("channel_id = %v", last.RawData["channel_id"])
	}
}
