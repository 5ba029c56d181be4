package photos_test

import (
	"context"
	"testing"

	"github.com/planloop/planloop/internal/adapter/tools/photos"
)

func TestSubmitRequiresActiveCollection(t *testing.T) {
	svc := photos.New()
	ctx := context.Background()

	submit := map[string]any{
		"event_id": "evt-1", "user_id": "u1", "photo_url": "https://cdn.example/p.jpg",
	}
	if _, err := svc.Call(ctx, "submit_photo_dm", submit); err == nil {
		t.Fatal("submit before activation should fail")
	}

	if _, err := svc.Call(ctx, "activate_photo_collection", map[string]any{"event_id": "evt-1"}); err != nil {
		t.Fatalf("activate error = %v", err)
	}
	if _, err := svc.Call(ctx, "submit_photo_dm", submit); err != nil {
		t.Fatalf("submit error = %v", err)
	}

	status, err := svc.Call(ctx, "get_photo_status", map[string]any{"event_id": "evt-1"})
	if err != nil {
		t.Fatalf("get_photo_status error = %v", err)
	}
	if status["active"] != true || status["submissions"] != 1 {
		t.Fatalf("status = %v, want active with 1 submission", status)
	}

	if _, err := svc.Call(ctx, "deactivate_photo_collection", map[string]any{"event_id": "evt-1"}); err != nil {
		t.Fatalf("deactivate error = %v", err)
	}
	if _, err := svc.Call(ctx, "submit_photo_dm", submit); err == nil {
		t.Fatal("submit after deactivation should fail")
	}
}
