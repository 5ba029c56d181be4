// Package rsvp implements the RSVP tool service: emoji reactions are
// mapped to attendance and tallied per event.
package rsvp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Response is the attendance reading of one reaction.
type Response string

const (
	ResponseYes   Response = "yes"
	ResponseNo    Response = "no"
	ResponseMaybe Response = "maybe"
	ResponseOther Response = "other"
)

// emojiResponses maps reaction emoji to attendance.
var emojiResponses = map[string]Response{
	"✅":     ResponseYes,   // ✅
	"\U0001F44D": ResponseYes,   // 👍
	"❌":     ResponseNo,    // ❌
	"\U0001F44E": ResponseNo,    // 👎
	"\U0001F914": ResponseMaybe, // 🤔
	"❓":     ResponseMaybe, // ❓
}

// Entry is one user's RSVP for one event.
type Entry struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	Response  Response  `json:"response"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service is the rsvp tool backend.
type Service struct {
	mu      sync.RWMutex
	byEvent map[string]map[string]*Entry // event id -> user id -> entry
	total   int                          // reactions processed, for global stats
}

func New() *Service {
	return &Service{byEvent: make(map[string]map[string]*Entry)}
}

func (s *Service) Name() string { return "rsvp" }

func (s *Service) Tools() []string {
	return []string{
		"process_rsvp",
		"get_rsvp",
		"get_user_rsvp",
		"update_user_rsvp",
		"delete_rsvp",
		"get_event_rsvps",
		"get_rsvp_analytics",
		"get_rsvp_stats",
	}
}

func (s *Service) Call(_ context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "process_rsvp", "update_user_rsvp":
		return s.process(args)
	case "get_rsvp", "get_user_rsvp":
		return s.getUser(args)
	case "delete_rsvp":
		return s.delete(args)
	case "get_event_rsvps":
		return s.eventRSVPs(args)
	case "get_rsvp_analytics":
		return s.analytics(args)
	case "get_rsvp_stats":
		return s.stats()
	default:
		return nil, fmt.Errorf("rsvp: unknown tool %q", tool)
	}
}

func (s *Service) process(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)
	userID, _ := args["user_id"].(string)
	emoji, _ := args["emoji"].(string)
	if eventID == "" || userID == "" {
		return nil, fmt.Errorf("event_id and user_id are required")
	}

	response, ok := emojiResponses[emoji]
	if !ok {
		response = ResponseOther
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.byEvent[eventID]
	if users == nil {
		users = make(map[string]*Entry)
		s.byEvent[eventID] = users
	}
	entry, ok := users[userID]
	if !ok {
		entry = &Entry{ID: uuid.NewString(), EventID: eventID, UserID: userID}
		users[userID] = entry
	}
	entry.Emoji = emoji
	entry.Response = response
	entry.UpdatedAt = time.Now().UTC()
	s.total++

	return map[string]any{
		"success":  true,
		"rsvp_id":  entry.ID,
		"response": string(response),
	}, nil
}

func (s *Service) getUser(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)
	userID, _ := args["user_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byEvent[eventID][userID]
	if !ok {
		return nil, fmt.Errorf("no rsvp for user %q on event %q", userID, eventID)
	}
	return map[string]any{"rsvp": entry}, nil
}

func (s *Service) delete(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)
	userID, _ := args["user_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEvent[eventID][userID]; !ok {
		return nil, fmt.Errorf("no rsvp for user %q on event %q", userID, eventID)
	}
	delete(s.byEvent[eventID], userID)
	return map[string]any{"success": true}, nil
}

func (s *Service) eventRSVPs(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*Entry, 0, len(s.byEvent[eventID]))
	for _, e := range s.byEvent[eventID] {
		entries = append(entries, e)
	}
	return map[string]any{"event_id": eventID, "rsvps": entries, "count": len(entries)}, nil
}

func (s *Service) analytics(args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	tally := map[Response]int{}
	for _, e := range s.byEvent[eventID] {
		tally[e.Response]++
	}
	return map[string]any{
		"event_id": eventID,
		"yes":      tally[ResponseYes],
		"no":       tally[ResponseNo],
		"maybe":    tally[ResponseMaybe],
		"other":    tally[ResponseOther],
	}, nil
}

func (s *Service) stats() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := map[string]bool{}
	for _, byUser := range s.byEvent {
		for uid := range byUser {
			users[uid] = true
		}
	}
	return map[string]any{
		"events_with_rsvps":   len(s.byEvent),
		"unique_responders":   len(users),
		"reactions_processed": s.total,
	}, nil
}
