// Package delivery defines the outbound message delivery port.
package delivery

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a sender has no credentials or
// endpoint to deliver through.
var ErrNotConfigured = errors.New("delivery: not configured")

// Outbound is the payload handed to a Sender once the scheduler
// releases a message.
type Outbound struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Priority  string `json:"priority"`
}

// Sender is the port interface for delivering messages to a chat
// platform. Implementations must be safe for concurrent use.
type Sender interface {
	// Name returns the unique identifier for this sender (e.g. "discord").
	Name() string

	// Send delivers one message. A returned error means the message was
	// not delivered; the caller decides whether to drop or retry.
	Send(ctx context.Context, msg Outbound) error
}
