// Package cloudevent defines the CloudEvents v1.0 envelope used for
// inbound trigger delivery.
package cloudevent

import (
	"errors"
	"fmt"
	"time"
)

// Known event types emitted by the Discord adapter.
const (
	TypeCreateEvent          = "com.tlt.discord.create-event"
	TypeUpdateEvent          = "com.tlt.discord.update-event"
	TypeDeleteEvent          = "com.tlt.discord.delete-event"
	TypeListEvents           = "com.tlt.discord.list-events"
	TypeEventInfo            = "com.tlt.discord.event-info"
	TypeRSVPEvent            = "com.tlt.discord.rsvp-event"
	TypeRegisterGuild        = "com.tlt.discord.register-guild"
	TypeDeregisterGuild      = "com.tlt.discord.deregister-guild"
	TypePhotoVibeCheck       = "com.tlt.discord.photo-vibe-check"
	TypeSaveEventToGuildData = "com.tlt.discord.save-event-to-guild-data"
	TypeMessage              = "com.tlt.discord.message"
)

// SpecVersion is the only CloudEvents spec version accepted.
const SpecVersion = "1.0"

// Event is a CloudEvents v1.0 envelope. Data is carried opaquely; only
// the reasoning layer interprets domain-specific fields.
type Event struct {
	ID          string         `json:"id"`
	SpecVersion string         `json:"specversion"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	Subject     string         `json:"subject,omitempty"`
	Time        time.Time      `json:"time,omitzero"`
	Data        map[string]any `json:"data,omitempty"`
}

// Validate checks the required envelope attributes.
func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("cloudevent id is required")
	}
	if e.Type == "" {
		return errors.New("cloudevent type is required")
	}
	if e.Source == "" {
		return errors.New("cloudevent source is required")
	}
	if e.SpecVersion != "" && e.SpecVersion != SpecVersion {
		return fmt.Errorf("unsupported specversion %q", e.SpecVersion)
	}
	return nil
}
