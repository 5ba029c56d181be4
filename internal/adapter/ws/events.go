package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventAgentStatus = "agent.status"
	EventTaskStatus  = "task.status"
)

// AgentStatusEvent is broadcast whenever the agent publishes a snapshot.
type AgentStatusEvent struct {
	AgentID         string `json:"agent_id"`
	Status          string `json:"status"`
	ProcessingStep  string `json:"processing_step,omitempty"`
	IterationCount  int    `json:"iteration_count"`
	PendingEvents   int    `json:"pending_events"`
	PendingMessages int    `json:"pending_messages"`
}

// TaskStatusEvent is broadcast when a task reaches a new status.
type TaskStatusEvent struct {
	TaskID    string `json:"task_id"`
	EventType string `json:"event_type"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
