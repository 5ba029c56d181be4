package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/planloop/planloop/internal/domain/agent"
)

// ReminderEvent is the slice of an event the scanner needs.
type ReminderEvent struct {
	ID        string
	Title     string
	ChannelID string
	StartAt   time.Time
}

// EventSource lists events starting within a lookahead window.
type EventSource interface {
	UpcomingEvents(ctx context.Context, within time.Duration) ([]ReminderEvent, error)
}

// reminderOffsets maps each timer kind to its offset from the event
// start. Negative offsets fire before the event.
var reminderOffsets = []struct {
	Kind   string
	Offset time.Duration
}{
	{"1_day_before", -24 * time.Hour},
	{"day_of", -4 * time.Hour},
	{"event_time", 0},
	{"followup", 2 * time.Hour},
}

// ReminderService periodically scans upcoming events and feeds due
// reminder triggers into the agent inbox. Each (event, kind) pair
// fires at most once per process lifetime.
type ReminderService struct {
	source   EventSource
	inbox    Inbox
	logger   *slog.Logger
	interval time.Duration
	offset   time.Duration // lookahead window for the scan

	mu    sync.Mutex
	fired map[string]bool // "eventID/kind"

	now func() time.Time
}

func NewReminderService(source EventSource, inbox Inbox, interval, offset time.Duration, logger *slog.Logger) *ReminderService {
	return &ReminderService{
		source:   source,
		inbox:    inbox,
		logger:   logger,
		interval: interval,
		offset:   offset,
		fired:    make(map[string]bool),
		now:      time.Now,
	}
}

// SetNow replaces the scanner's clock. Intended for tests.
func (s *ReminderService) SetNow(now func() time.Time) {
	s.now = now
}

// Run scans on the configured interval until the context is canceled.
func (s *ReminderService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.logger.Error("reminder scan failed", "error", err)
			}
		}
	}
}

// Scan emits a trigger for every due, not-yet-fired reminder.
func (s *ReminderService) Scan(ctx context.Context) error {
	events, err := s.source.UpcomingEvents(ctx, s.offset)
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}
	now := s.now()

	emitted := 0
	for _, ev := range events {
		for _, ro := range reminderOffsets {
			at := ev.StartAt.Add(ro.Offset)
			if at.After(now) {
				continue
			}
			key := ev.ID + "/" + ro.Kind
			s.mu.Lock()
			done := s.fired[key]
			if !done {
				s.fired[key] = true
			}
			s.mu.Unlock()
			if done {
				continue
			}

			trigger := agent.NewIncomingEvent(agent.TriggerRSVPReminder, priorityForKind(ro.Kind))
			trigger.Timer = &agent.TimerContext{
				Kind:        ro.Kind,
				EventID:     ev.ID,
				ScheduledAt: at,
			}
			trigger.RawData = map[string]any{
				"event_title": ev.Title,
				"channel_id":  ev.ChannelID,
			}
			if err := s.inbox.Submit(trigger); err != nil {
				s.logger.Warn("reminder submit failed", "event_id", ev.ID, "kind", ro.Kind, "error", err)
				s.mu.Lock()
				delete(s.fired, key)
				s.mu.Unlock()
				continue
			}
			emitted++
		}
	}
	if emitted > 0 {
		s.logger.Info("reminders emitted", "count", emitted)
	}
	return nil
}

// priorityForKind makes start-time reminders more urgent than the
// day-before nudge.
func priorityForKind(kind string) agent.Priority {
	switch kind {
	case "event_time":
		return agent.PriorityUrgent
	case "day_of":
		return agent.PriorityHigh
	default:
		return agent.PriorityNormal
	}
}
