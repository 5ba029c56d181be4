// Package tools defines the port interface for tool services exposed
// through the gateway.
package tools

import "context"

// Service is one tool provider (events, rsvp, guilds, ...). A Service
// owns a set of named tools and executes calls against its own state.
type Service interface {
	// Name returns the unique service identifier (e.g. "event_manager").
	Name() string

	// Tools returns the tool names this service handles.
	Tools() []string

	// Call executes the named tool with the given arguments.
	Call(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
}
