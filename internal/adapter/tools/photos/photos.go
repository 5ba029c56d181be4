// Package photos implements the photo vibe check tool service. Photo
// collection is toggled per event; submissions arrive over DM.
package photos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Submission is one photo submitted for an event.
type Submission struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	URL         string    `json:"url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Service is the photo_vibe_check tool backend.
type Service struct {
	mu          sync.RWMutex
	active      map[string]bool          // event id -> collection open
	submissions map[string][]*Submission // event id -> photos
}

func New() *Service {
	return &Service{
		active:      make(map[string]bool),
		submissions: make(map[string][]*Submission),
	}
}

func (s *Service) Name() string { return "photo_vibe_check" }

func (s *Service) Tools() []string {
	return []string{
		"submit_photo_dm",
		"get_photo_status",
		"activate_photo_collection",
		"deactivate_photo_collection",
		"update_photo_settings",
	}
}

func (s *Service) Call(_ context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "submit_photo_dm":
		return s.submit(args)
	case "get_photo_status":
		return s.status(args)
	case "activate_photo_collection":
		return s.setActive(args, true)
	case "deactivate_photo_collection":
		return s.setActive(args, false)
	case "update_photo_settings":
		// Settings beyond the active flag are accepted and ignored.
		return map[string]any{"success": true}, nil
	default:
		return nil, fmt.Errorf("photos: unknown tool %q", tool)
	}
}

func (s *Service) submit(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)
	userID, _ := args["user_id"].(string)
	url, _ := args["photo_url"].(string)
	if eventID == "" || url == "" {
		return nil, fmt.Errorf("event_id and photo_url are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active[eventID] {
		return nil, fmt.Errorf("photo collection is not active for event %q", eventID)
	}
	sub := &Submission{
		ID:          uuid.NewString(),
		EventID:     eventID,
		UserID:      userID,
		URL:         url,
		SubmittedAt: time.Now().UTC(),
	}
	s.submissions[eventID] = append(s.submissions[eventID], sub)

	return map[string]any{"success": true, "submission_id": sub.ID}, nil
}

func (s *Service) status(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"event_id":    eventID,
		"active":      s.active[eventID],
		"submissions": len(s.submissions[eventID]),
	}, nil
}

func (s *Service) setActive(args map[string]any, active bool) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}

	s.mu.Lock()
	s.active[eventID] = active
	s.mu.Unlock()
	return map[string]any{"success": true, "event_id": eventID, "active": active}, nil
}
