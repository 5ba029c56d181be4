// Package events implements the event manager tool service backed by
// an in-memory store.
package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planloop/planloop/internal/service"
)

// Event is one planned event.
type Event struct {
	ID          string    `json:"id"`
	GuildID     string    `json:"guild_id,omitempty"`
	ChannelID   string    `json:"channel_id,omitempty"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartAt     time.Time `json:"start_at,omitzero"`
	EndAt       time.Time `json:"end_at,omitzero"`
	Status      string    `json:"status"` // "scheduled", "cancelled"
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service is the event_manager tool backend.
type Service struct {
	mu     sync.RWMutex
	events map[string]*Event

	// saved holds per-guild event archives written by
	// save_event_to_guild_data.
	saved map[string][]string // guild id -> event ids
}

func New() *Service {
	return &Service{
		events: make(map[string]*Event),
		saved:  make(map[string][]string),
	}
}

func (s *Service) Name() string { return "event_manager" }

func (s *Service) Tools() []string {
	return []string{
		"create_event",
		"update_event",
		"delete_event",
		"get_event",
		"get_all_events",
		"list_events",
		"search_events",
		"save_event_to_guild_data",
	}
}

func (s *Service) Call(_ context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "create_event":
		return s.create(args)
	case "update_event":
		return s.update(args)
	case "delete_event":
		return s.delete(args)
	case "get_event":
		return s.get(args)
	case "get_all_events", "list_events":
		return s.list(args)
	case "search_events":
		return s.search(args)
	case "save_event_to_guild_data":
		return s.saveToGuild(args)
	default:
		return nil, fmt.Errorf("events: unknown tool %q", tool)
	}
}

func (s *Service) create(args map[string]any) (map[string]any, error) {
	title, _ := args["title"].(string)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	now := time.Now().UTC()
	ev := &Event{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    "scheduled",
		CreatedAt: now,
		UpdatedAt: now,
	}
	ev.GuildID, _ = args["guild_id"].(string)
	ev.ChannelID, _ = args["channel_id"].(string)
	ev.CreatorID, _ = args["user_id"].(string)
	ev.Description, _ = args["description"].(string)
	ev.Location, _ = args["location"].(string)
	ev.StartAt = parseTime(args["start_time"])
	ev.EndAt = parseTime(args["end_time"])

	s.mu.Lock()
	s.events[ev.ID] = ev
	s.mu.Unlock()

	return map[string]any{"success": true, "event": ev}, nil
}

func (s *Service) update(args map[string]any) (map[string]any, error) {
	id, _ := args["event_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %q not found", id)
	}
	if v, ok := args["title"].(string); ok && v != "" {
		ev.Title = v
	}
	if v, ok := args["description"].(string); ok {
		ev.Description = v
	}
	if v, ok := args["location"].(string); ok {
		ev.Location = v
	}
	if t := parseTime(args["start_time"]); !t.IsZero() {
		ev.StartAt = t
	}
	if t := parseTime(args["end_time"]); !t.IsZero() {
		ev.EndAt = t
	}
	if v, ok := args["status"].(string); ok && v != "" {
		ev.Status = v
	}
	ev.UpdatedAt = time.Now().UTC()

	return map[string]any{"success": true, "event": ev}, nil
}

func (s *Service) delete(args map[string]any) (map[string]any, error) {
	id, _ := args["event_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return nil, fmt.Errorf("event %q not found", id)
	}
	delete(s.events, id)
	return map[string]any{"success": true, "event_id": id}, nil
}

func (s *Service) get(args map[string]any) (map[string]any, error) {
	id, _ := args["event_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %q not found", id)
	}
	return map[string]any{"event": ev}, nil
}

func (s *Service) list(args map[string]any) (map[string]any, error) {
	guildID, _ := args["guild_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Event, 0, len(s.events))
	for _, ev := range s.events {
		if guildID != "" && ev.GuildID != guildID {
			continue
		}
		out = append(out, ev)
	}
	return map[string]any{"events": out, "count": len(out)}, nil
}

func (s *Service) search(args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Event, 0)
	for _, ev := range s.events {
		if query == "" || containsFold(ev.Title, query) || containsFold(ev.Description, query) {
			out = append(out, ev)
		}
	}
	return map[string]any{"events": out, "count": len(out)}, nil
}

func (s *Service) saveToGuild(args map[string]any) (map[string]any, error) {
	id, _ := args["event_id"].(string)
	guildID, _ := args["guild_id"].(string)
	if guildID == "" {
		return nil, fmt.Errorf("guild_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return nil, fmt.Errorf("event %q not found", id)
	}
	s.saved[guildID] = append(s.saved[guildID], id)
	return map[string]any{"success": true, "event_id": id, "guild_id": guildID}, nil
}

// UpcomingEvents implements service.EventSource for the reminder
// scanner: scheduled events starting within the window.
func (s *Service) UpcomingEvents(_ context.Context, within time.Duration) ([]service.ReminderEvent, error) {
	now := time.Now().UTC()
	cutoff := now.Add(within)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []service.ReminderEvent
	for _, ev := range s.events {
		if ev.Status != "scheduled" || ev.StartAt.IsZero() {
			continue
		}
		if ev.StartAt.After(cutoff) {
			continue
		}
		out = append(out, service.ReminderEvent{
			ID:        ev.ID,
			Title:     ev.Title,
			ChannelID: ev.ChannelID,
			StartAt:   ev.StartAt,
		})
	}
	return out, nil
}

func parseTime(v any) time.Time {
	s, _ := v.(string)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
