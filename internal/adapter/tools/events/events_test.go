package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/planloop/planloop/internal/adapter/tools/events"
)

func create(t *testing.T, svc *events.Service, args map[string]any) events.Event {
	t.Helper()
	result, err := svc.Call(context.Background(), "create_event", args)
	if err != nil {
		t.Fatalf("create_event error = %v", err)
	}
	ev, ok := result["event"].(*events.Event)
	if !ok {
		t.Fatalf("event type = %T", result["event"])
	}
	return *ev
}

func TestEventLifecycle(t *testing.T) {
	svc := events.New()
	ctx := context.Background()

	ev := create(t, svc, map[string]any{
		"title":      "Picnic",
		"guild_id":   "g1",
		"channel_id": "c1",
		"user_id":    "owner-1",
		"start_time": "2026-06-01T18:00:00Z",
	})
	if ev.Status != "scheduled" {
		t.Fatalf("Status = %q", ev.Status)
	}
	if ev.StartAt.IsZero() {
		t.Fatal("StartAt not parsed")
	}

	if _, err := svc.Call(ctx, "update_event", map[string]any{
		"event_id": ev.ID, "location": "Riverside park",
	}); err != nil {
		t.Fatalf("update_event error = %v", err)
	}

	result, err := svc.Call(ctx, "get_event", map[string]any{"event_id": ev.ID})
	if err != nil {
		t.Fatalf("get_event error = %v", err)
	}
	got := result["event"].(*events.Event)
	if got.Location != "Riverside park" {
		t.Fatalf("Location = %q", got.Location)
	}

	if _, err := svc.Call(ctx, "delete_event", map[string]any{"event_id": ev.ID}); err != nil {
		t.Fatalf("delete_event error = %v", err)
	}
	if _, err := svc.Call(ctx, "get_event", map[string]any{"event_id": ev.ID}); err == nil {
		t.Fatal("get_event after delete should fail")
	}
}

func TestListFiltersByGuild(t *testing.T) {
	svc := events.New()
	create(t, svc, map[string]any{"title": "A", "guild_id": "g1"})
	create(t, svc, map[string]any{"title": "B", "guild_id": "g2"})

	result, err := svc.Call(context.Background(), "list_events", map[string]any{"guild_id": "g1"})
	if err != nil {
		t.Fatalf("list_events error = %v", err)
	}
	if result["count"] != 1 {
		t.Fatalf("count = %v, want 1", result["count"])
	}
}

func TestSearchEvents(t *testing.T) {
	svc := events.New()
	create(t, svc, map[string]any{"title": "Summer Picnic"})
	create(t, svc, map[string]any{"title": "Board games night"})

	result, err := svc.Call(context.Background(), "search_events", map[string]any{"query": "picnic"})
	if err != nil {
		t.Fatalf("search_events error = %v", err)
	}
	if result["count"] != 1 {
		t.Fatalf("count = %v, want 1", result["count"])
	}
}

func TestUpcomingEvents(t *testing.T) {
	svc := events.New()
	soon := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)
	farOff := time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339)
	create(t, svc, map[string]any{"title": "Soon", "channel_id": "c1", "start_time": soon})
	create(t, svc, map[string]any{"title": "Later", "channel_id": "c1", "start_time": farOff})
	create(t, svc, map[string]any{"title": "Unscheduled"})

	upcoming, err := svc.UpcomingEvents(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("UpcomingEvents() = %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].Title != "Soon" {
		t.Fatalf("upcoming = %+v, want only Soon", upcoming)
	}
}

func TestSaveEventToGuildData(t *testing.T) {
	svc := events.New()
	ev := create(t, svc, map[string]any{"title": "Picnic"})

	if _, err := svc.Call(context.Background(), "save_event_to_guild_data", map[string]any{
		"event_id": ev.ID, "guild_id": "g1",
	}); err != nil {
		t.Fatalf("save_event_to_guild_data error = %v", err)
	}

	if _, err := svc.Call(context.Background(), "save_event_to_guild_data", map[string]any{
		"event_id": "missing", "guild_id": "g1",
	}); err == nil {
		t.Fatal("saving unknown event should fail")
	}
}
