// Package canvas implements the collaborative event canvas tool
// service. Anyone can place elements, subject to a per-user cooldown.
package canvas

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// placeCooldown is the minimum gap between placements by one user on
// one canvas.
const placeCooldown = 30 * time.Second

// Element is one placed canvas element.
type Element struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Kind     string    `json:"kind"` // "emoji", "text", "sticker"
	Value    string    `json:"value"`
	PlacedAt time.Time `json:"placed_at"`
}

type board struct {
	eventID   string
	elements  []*Element
	lastPlace map[string]time.Time // user id -> last placement
}

// Service is the event canvas tool backend.
type Service struct {
	mu     sync.RWMutex
	boards map[string]*board // event id -> board

	now func() time.Time
}

func New() *Service {
	return &Service{
		boards: make(map[string]*board),
		now:    time.Now,
	}
}

// SetNow replaces the clock. Intended for tests.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

func (s *Service) Name() string { return "event_canvas" }

func (s *Service) Tools() []string {
	return []string{
		"create_canvas",
		"place_element",
		"get_canvas",
		"get_canvas_summary",
	}
}

func (s *Service) Call(_ context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "create_canvas":
		return s.create(args)
	case "place_element":
		return s.place(args)
	case "get_canvas", "get_canvas_summary":
		return s.summary(args)
	default:
		return nil, fmt.Errorf("canvas: unknown tool %q", tool)
	}
}

func (s *Service) create(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.boards[eventID]; exists {
		return nil, fmt.Errorf("canvas already exists for event %q", eventID)
	}
	s.boards[eventID] = &board{eventID: eventID, lastPlace: make(map[string]time.Time)}
	return map[string]any{"success": true, "event_id": eventID}, nil
}

func (s *Service) place(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)
	userID, _ := args["user_id"].(string)
	if eventID == "" || userID == "" {
		return nil, fmt.Errorf("event_id and user_id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[eventID]
	if !ok {
		return nil, fmt.Errorf("no canvas for event %q", eventID)
	}

	now := s.now()
	if last, ok := b.lastPlace[userID]; ok {
		if wait := placeCooldown - now.Sub(last); wait > 0 {
			return nil, fmt.Errorf("cooldown: next placement allowed in %s", wait.Round(time.Second))
		}
	}

	el := &Element{
		ID:       uuid.NewString(),
		UserID:   userID,
		Kind:     stringArg(args, "kind", "emoji"),
		Value:    stringArg(args, "value", ""),
		PlacedAt: now,
	}
	el.X = intArg(args, "x")
	el.Y = intArg(args, "y")
	b.elements = append(b.elements, el)
	b.lastPlace[userID] = now

	return map[string]any{"success": true, "element_id": el.ID}, nil
}

func (s *Service) summary(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[eventID]
	if !ok {
		return nil, fmt.Errorf("no canvas for event %q", eventID)
	}
	contributors := map[string]bool{}
	for _, el := range b.elements {
		contributors[el.UserID] = true
	}
	return map[string]any{
		"event_id":     eventID,
		"elements":     b.elements,
		"count":        len(b.elements),
		"contributors": len(contributors),
	}, nil
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
