package agent

import (
	"time"

	"github.com/google/uuid"
)

// MessageToSend is an outbound message awaiting delivery. It leaves the
// pending queue only on a successful send or an explicit abandon.
type MessageToSend struct {
	ID            string         `json:"id"`
	ChannelID     string         `json:"channel_id"`
	Content       string         `json:"content"`
	Priority      Priority       `json:"priority"`
	ScheduledTime time.Time      `json:"scheduled_time,omitzero"` // zero = send immediately
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates an immediate message with a fresh ID.
func NewMessage(channelID, content string, priority Priority) MessageToSend {
	return MessageToSend{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Content:   content,
		Priority:  priority,
	}
}
