package agent

import (
	"time"

	"github.com/google/uuid"
)

// DecisionType is the closed set of action kinds the reasoner can emit.
// Keeping this an enum lets the action router switch exhaustively instead
// of string-matching free-form payloads.
type DecisionType string

const (
	DecisionSendMessage    DecisionType = "send_message"
	DecisionScheduleTimer  DecisionType = "schedule_timer"
	DecisionUseTool        DecisionType = "use_mcp_tool"
	DecisionUpdateEvent    DecisionType = "update_event"
	DecisionCreateReminder DecisionType = "create_reminder"
	DecisionNoAction       DecisionType = "no_action"
)

// RequiresTool reports whether a decision of this type implies a backend
// tool call even when no explicit tool request was queued.
func (d DecisionType) RequiresTool() bool {
	switch d {
	case DecisionUseTool, DecisionUpdateEvent, DecisionCreateReminder:
		return true
	case DecisionSendMessage, DecisionScheduleTimer, DecisionNoAction:
		return false
	default:
		return false
	}
}

// Decision records one reasoning outcome with its confidence and rationale.
type Decision struct {
	ID         string         `json:"id"`
	Type       DecisionType   `json:"type"`
	Reasoning  string         `json:"reasoning"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewDecision creates a decision with a fresh ID and timestamp.
func NewDecision(typ DecisionType, reasoning string, confidence float64) Decision {
	return Decision{
		ID:         uuid.NewString(),
		Type:       typ,
		Reasoning:  reasoning,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
	}
}

// ToolRequest is a queued backend tool invocation produced by reasoning.
type ToolRequest struct {
	ID            string         `json:"id"`
	Tool          string         `json:"tool"`
	Args          map[string]any `json:"args"`
	SourceEventID string         `json:"source_event_id,omitempty"`
}

// NewToolRequest creates a tool request with a fresh ID.
func NewToolRequest(tool string, args map[string]any) ToolRequest {
	return ToolRequest{
		ID:   uuid.NewString(),
		Tool: tool,
		Args: args,
	}
}

// ToolCallRecord is one entry of the tool call history.
type ToolCallRecord struct {
	RequestID string         `json:"request_id"`
	Tool      string         `json:"tool"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
