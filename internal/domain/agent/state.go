// Package agent defines the domain model for the ambient event agent:
// its mutable state, incoming events, decisions, and outbound messages.
package agent

import (
	"time"

	"github.com/google/uuid"
)

// Status is the agent's operational status.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusIdle         Status = "idle"
	StatusProcessing   Status = "processing"
	StatusError        Status = "error"
	StatusStopping     Status = "stopping"
)

// History bounds. Error history is compacted to the most recent
// errorHistoryKeep entries once it exceeds errorHistoryMax.
const (
	errorHistoryMax  = 50
	errorHistoryKeep = 25

	decisionHistoryMax  = 20
	decisionHistoryKeep = 10

	conversationHistoryMax  = 200
	conversationHistoryKeep = 100

	toolCallHistoryMax = 50
)

// Config holds the state machine's tunables.
type Config struct {
	MaxRetryAttempts int
	MaxIterations    int // 0 = unlimited; set for bounded test/demo runs
	IdleCycleLimit   int // 0 = unlimited; safety valve for automated runs
	DebugMode        bool
	PollInterval     time.Duration
}

// ErrorEntry is one structured record in the error history.
type ErrorEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Phase          string    `json:"phase"`
	ErrorType      string    `json:"error_type"`
	Message        string    `json:"message"`
	ProcessingStep string    `json:"processing_step"`
}

// ConversationEntry records one significant processing step for diagnostics.
type ConversationEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     string    `json:"phase"`
	Step      string    `json:"step"`
	Detail    string    `json:"detail,omitempty"`
}

// State is the agent's mutable state. Exactly one state machine instance
// owns a State at a time; phases mutate it sequentially and nothing else
// writes to it. Other goroutines observe it only through Snapshot.
type State struct {
	AgentID        string
	Status         Status
	ProcessingStep string
	StartedAt      time.Time
	LastActivity   time.Time

	IterationCount   int
	MonitoringCycles int
	RetryCount       int

	PendingEvents       []IncomingEvent
	PendingMessages     []MessageToSend
	PendingToolRequests []ToolRequest

	RecentDecisions     []Decision
	ToolCallHistory     []ToolCallRecord
	ErrorHistory        []ErrorEntry
	ConversationHistory []ConversationEntry

	AvailableTools []string

	Config Config
}

// NewState creates an initializing State with the given config applied.
func NewState(cfg Config) *State {
	now := time.Now().UTC()
	return &State{
		AgentID:      "agent_" + uuid.NewString()[:8],
		Status:       StatusInitializing,
		StartedAt:    now,
		LastActivity: now,
		Config:       cfg,
	}
}

// Touch marks phase activity: updates the processing step, bumps the
// iteration counter, stamps last activity, and appends a conversation entry.
func (s *State) Touch(phase, step string) {
	s.IterationCount++
	s.Step(phase, step)
}

// Step records a processing step without counting an iteration. Used by
// the sub-phases of a single loop pass.
func (s *State) Step(phase, step string) {
	s.ProcessingStep = step
	s.LastActivity = time.Now().UTC()
	s.ConversationHistory = append(s.ConversationHistory, ConversationEntry{
		Timestamp: s.LastActivity,
		Phase:     phase,
		Step:      step,
	})
	if len(s.ConversationHistory) > conversationHistoryMax {
		s.ConversationHistory = append([]ConversationEntry(nil),
			s.ConversationHistory[len(s.ConversationHistory)-conversationHistoryKeep:]...)
	}
}

// PushEvent appends an incoming event to the FIFO queue.
func (s *State) PushEvent(ev IncomingEvent) {
	s.PendingEvents = append(s.PendingEvents, ev)
}

// PopEvent removes and returns the oldest pending event.
func (s *State) PopEvent() (IncomingEvent, bool) {
	if len(s.PendingEvents) == 0 {
		return IncomingEvent{}, false
	}
	ev := s.PendingEvents[0]
	s.PendingEvents = s.PendingEvents[1:]
	return ev, true
}

// RecordError appends a structured error entry, increments the retry
// counter, flips the agent into the error status, and compacts the history
// to the most recent entries once it grows past its bound.
func (s *State) RecordError(phase string, err error) {
	s.ErrorHistory = append(s.ErrorHistory, ErrorEntry{
		Timestamp:      time.Now().UTC(),
		Phase:          phase,
		ErrorType:      errorType(err),
		Message:        err.Error(),
		ProcessingStep: s.ProcessingStep,
	})
	s.RetryCount++
	s.Status = StatusError

	if len(s.ErrorHistory) > errorHistoryMax {
		s.ErrorHistory = append([]ErrorEntry(nil),
			s.ErrorHistory[len(s.ErrorHistory)-errorHistoryKeep:]...)
	}
}

// ResetRetries clears the retry counter after a successful step.
func (s *State) ResetRetries() {
	s.RetryCount = 0
}

// AppendDecision records a reasoning decision, compacting the history
// once it grows past its bound.
func (s *State) AppendDecision(d Decision) {
	s.RecentDecisions = append(s.RecentDecisions, d)
	if len(s.RecentDecisions) > decisionHistoryMax {
		s.RecentDecisions = append([]Decision(nil),
			s.RecentDecisions[len(s.RecentDecisions)-decisionHistoryKeep:]...)
	}
}

// RecentDecisionRequiresTool reports whether any of the last n decisions
// is of a tool-requiring type.
func (s *State) RecentDecisionRequiresTool(n int) bool {
	start := len(s.RecentDecisions) - n
	if start < 0 {
		start = 0
	}
	for _, d := range s.RecentDecisions[start:] {
		if d.Type.RequiresTool() {
			return true
		}
	}
	return false
}

// RecordToolCall appends a tool call record, keeping the history bounded.
func (s *State) RecordToolCall(rec ToolCallRecord) {
	s.ToolCallHistory = append(s.ToolCallHistory, rec)
	if len(s.ToolCallHistory) > toolCallHistoryMax {
		s.ToolCallHistory = append([]ToolCallRecord(nil),
			s.ToolCallHistory[len(s.ToolCallHistory)-toolCallHistoryMax:]...)
	}
}

// Snapshot is a read-only copy of the state's observable fields,
// published to the API layer and the websocket hub.
type Snapshot struct {
	AgentID          string    `json:"agent_id"`
	Status           Status    `json:"status"`
	ProcessingStep   string    `json:"processing_step"`
	StartedAt        time.Time `json:"started_at"`
	LastActivity     time.Time `json:"last_activity"`
	IterationCount   int       `json:"iteration_count"`
	MonitoringCycles int       `json:"monitoring_cycles"`
	RetryCount       int       `json:"retry_count"`
	PendingEvents    int       `json:"pending_events"`
	PendingMessages  int       `json:"pending_messages"`
	PendingToolCalls int       `json:"pending_tool_calls"`
	ToolCallsTotal   int       `json:"tool_calls_total"`
	ErrorsRecorded   int       `json:"errors_recorded"`
	AvailableTools   []string  `json:"available_tools,omitempty"`
}

// Snapshot returns a copy of the observable state.
func (s *State) Snapshot() Snapshot {
	tools := append([]string(nil), s.AvailableTools...)
	return Snapshot{
		AgentID:          s.AgentID,
		Status:           s.Status,
		ProcessingStep:   s.ProcessingStep,
		StartedAt:        s.StartedAt,
		LastActivity:     s.LastActivity,
		IterationCount:   s.IterationCount,
		MonitoringCycles: s.MonitoringCycles,
		RetryCount:       s.RetryCount,
		PendingEvents:    len(s.PendingEvents),
		PendingMessages:  len(s.PendingMessages),
		PendingToolCalls: len(s.PendingToolRequests),
		ToolCallsTotal:   len(s.ToolCallHistory),
		ErrorsRecorded:   len(s.ErrorHistory),
		AvailableTools:   tools,
	}
}

// errorType returns a short classification of err for the error history.
func errorType(err error) string {
	type typer interface{ Timeout() bool }
	if t, ok := err.(typer); ok && t.Timeout() {
		return "timeout"
	}
	return "error"
}
