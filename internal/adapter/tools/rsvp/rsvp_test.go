package rsvp_test

import (
	"context"
	"testing"

	"github.com/planloop/planloop/internal/adapter/tools/rsvp"
)

func TestProcessRSVPEmojiMapping(t *testing.T) {
	tests := []struct {
		emoji string
		want  string
	}{
		{"✅", "yes"},
		{"\U0001F44D", "yes"},
		{"❌", "no"},
		{"\U0001F914", "maybe"},
		{"\U0001F389", "other"}, // 🎉 has no attendance meaning
	}

	svc := rsvp.New()
	for _, tt := range tests {
		result, err := svc.Call(context.Background(), "process_rsvp", map[string]any{
			"event_id": "evt-1", "user_id": "u-" + tt.want + tt.emoji, "emoji": tt.emoji,
		})
		if err != nil {
			t.Fatalf("process_rsvp(%q) error = %v", tt.emoji, err)
		}
		if result["response"] != tt.want {
			t.Errorf("response for %q = %v, want %q", tt.emoji, result["response"], tt.want)
		}
	}
}

func TestRSVPUpdateReplacesPrevious(t *testing.T) {
	svc := rsvp.New()
	ctx := context.Background()

	args := map[string]any{"event_id": "evt-1", "user_id": "u1", "emoji": "✅"}
	if _, err := svc.Call(ctx, "process_rsvp", args); err != nil {
		t.Fatalf("process_rsvp error = %v", err)
	}
	args["emoji"] = "❌"
	if _, err := svc.Call(ctx, "process_rsvp", args); err != nil {
		t.Fatalf("second process_rsvp error = %v", err)
	}

	result, err := svc.Call(ctx, "get_rsvp_analytics", map[string]any{"event_id": "evt-1"})
	if err != nil {
		t.Fatalf("get_rsvp_analytics error = %v", err)
	}
	if result["yes"] != 0 || result["no"] != 1 {
		t.Fatalf("analytics = %v, want yes=0 no=1", result)
	}
}

func TestRSVPStats(t *testing.T) {
	svc := rsvp.New()
	ctx := context.Background()

	for _, uid := range []string{"u1", "u2"} {
		if _, err := svc.Call(ctx, "process_rsvp", map[string]any{
			"event_id": "evt-1", "user_id": uid, "emoji": "✅",
		}); err != nil {
			t.Fatalf("process_rsvp error = %v", err)
		}
	}
	if _, err := svc.Call(ctx, "process_rsvp", map[string]any{
		"event_id": "evt-2", "user_id": "u1", "emoji": "❌",
	}); err != nil {
		t.Fatalf("process_rsvp error = %v", err)
	}

	result, err := svc.Call(ctx, "get_rsvp_stats", nil)
	if err != nil {
		t.Fatalf("get_rsvp_stats error = %v", err)
	}
	if result["events_with_rsvps"] != 2 {
		t.Errorf("events_with_rsvps = %v, want 2", result["events_with_rsvps"])
	}
	if result["unique_responders"] != 2 {
		t.Errorf("unique_responders = %v, want 2", result["unique_responders"])
	}
	if result["reactions_processed"] != 3 {
		t.Errorf("reactions_processed = %v, want 3", result["reactions_processed"])
	}
}

func TestRSVPMissingFields(t *testing.T) {
	svc := rsvp.New()
	if _, err := svc.Call(context.Background(), "process_rsvp", map[string]any{"emoji": "✅"}); err == nil {
		t.Fatal("process_rsvp without ids should fail")
	}
}
