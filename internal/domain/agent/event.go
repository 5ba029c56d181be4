package agent

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType identifies the source kind of an incoming event.
type TriggerType string

const (
	TriggerDiscordMessage TriggerType = "discord_message"
	TriggerTimer          TriggerType = "timer_trigger"
	TriggerRSVPReminder   TriggerType = "rsvp_reminder"
	TriggerFollowup       TriggerType = "event_followup"
	TriggerManual         TriggerType = "manual_trigger"
	TriggerCloudEvent     TriggerType = "cloudevent"
)

// Priority orders outbound work. It affects the admission threshold of the
// outbound scheduler, not the ordering of the inbound queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// AdmissionFactor returns the multiplier applied to the scheduler's base
// send cap when admitting a message of this priority.
func (p Priority) AdmissionFactor() float64 {
	switch p {
	case PriorityUrgent:
		return 2.0
	case PriorityHigh:
		return 1.5
	default:
		return 1.0
	}
}

// ParsePriority maps a string to a Priority, defaulting to normal.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(s)
	default:
		return PriorityNormal
	}
}

// DiscordContext carries Discord addressing for an event.
type DiscordContext struct {
	GuildID   string `json:"guild_id,omitempty"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// TimerContext carries the descriptor of a fired timer.
type TimerContext struct {
	Kind        string    `json:"kind"` // "1_day_before", "day_of", "event_time", "followup"
	EventID     string    `json:"event_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// CloudEventContext carries the envelope of an inbound CloudEvent.
// The data payload passes through opaquely; the reasoner interprets it.
type CloudEventContext struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Source  string         `json:"source"`
	Subject string         `json:"subject,omitempty"`
	Time    time.Time      `json:"time,omitzero"`
	Data    map[string]any `json:"data,omitempty"`
}

// IncomingEvent is the uniform representation of an inbound trigger.
// It is created at ingestion, consumed exactly once by the reasoning
// phase, and then discarded.
type IncomingEvent struct {
	ID          string      `json:"id"`
	TriggerType TriggerType `json:"trigger_type"`
	Priority    Priority    `json:"priority"`
	Timestamp   time.Time   `json:"timestamp"`

	Discord    *DiscordContext    `json:"discord,omitempty"`
	Timer      *TimerContext      `json:"timer,omitempty"`
	CloudEvent *CloudEventContext `json:"cloudevent,omitempty"`

	RawData  map[string]any `json:"raw_data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewIncomingEvent creates an event with a fresh ID and timestamp.
func NewIncomingEvent(trigger TriggerType, priority Priority) IncomingEvent {
	return IncomingEvent{
		ID:          uuid.NewString(),
		TriggerType: trigger,
		Priority:    priority,
		Timestamp:   time.Now().UTC(),
	}
}

// ScheduledTimer is a future trigger owned by the reminder scanner.
type ScheduledTimer struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Kind        string    `json:"kind"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Priority    Priority  `json:"priority"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewScheduledTimer creates an active timer with a fresh ID.
func NewScheduledTimer(eventID, kind string, at time.Time, priority Priority) ScheduledTimer {
	return ScheduledTimer{
		ID:          uuid.NewString(),
		EventID:     eventID,
		Kind:        kind,
		ScheduledAt: at,
		Priority:    priority,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
}
