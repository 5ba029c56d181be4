// Package guilds implements the guild manager tool service.
package guilds

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Guild is one registered Discord guild.
type Guild struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	ChannelID    string    `json:"channel_id,omitempty"` // default announcement channel
	RegisteredBy string    `json:"registered_by,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Service is the guild_manager tool backend.
type Service struct {
	mu     sync.RWMutex
	guilds map[string]*Guild
}

func New() *Service {
	return &Service{guilds: make(map[string]*Guild)}
}

func (s *Service) Name() string { return "guild_manager" }

func (s *Service) Tools() []string {
	return []string{
		"register_guild",
		"deregister_guild",
		"get_guild",
		"get_guild_info",
		"list_guilds",
	}
}

func (s *Service) Call(_ context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "register_guild":
		return s.register(args)
	case "deregister_guild":
		return s.deregister(args)
	case "get_guild", "get_guild_info":
		return s.get(args)
	case "list_guilds":
		return s.list()
	default:
		return nil, fmt.Errorf("guilds: unknown tool %q", tool)
	}
}

func (s *Service) register(args map[string]any) (map[string]any, error) {
	id, _ := args["guild_id"].(string)
	if id == "" {
		return nil, fmt.Errorf("guild_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.guilds[id]; exists {
		return nil, fmt.Errorf("guild %q already registered", id)
	}
	g := &Guild{ID: id, RegisteredAt: time.Now().UTC()}
	g.Name, _ = args["guild_name"].(string)
	g.ChannelID, _ = args["channel_id"].(string)
	g.RegisteredBy, _ = args["user_id"].(string)
	s.guilds[id] = g

	return map[string]any{"success": true, "guild": g}, nil
}

func (s *Service) deregister(args map[string]any) (map[string]any, error) {
	id, _ := args["guild_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guilds[id]; !ok {
		return nil, fmt.Errorf("guild %q not registered", id)
	}
	delete(s.guilds, id)
	return map[string]any{"success": true, "guild_id": id}, nil
}

func (s *Service) get(args map[string]any) (map[string]any, error) {
	id, _ := args["guild_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guilds[id]
	if !ok {
		return nil, fmt.Errorf("guild %q not registered", id)
	}
	return map[string]any{"guild": g}, nil
}

func (s *Service) list() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Guild, 0, len(s.guilds))
	for _, g := range s.guilds {
		out = append(out, g)
	}
	return map[string]any{"guilds": out, "count": len(out)}, nil
}
