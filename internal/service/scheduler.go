package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	plotel "github.com/planloop/planloop/internal/adapter/otel"
	"github.com/planloop/planloop/internal/config"
	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/port/delivery"
)

// SchedulerService rate-limits outbound messages with a sliding window
// over recent sends. Messages above the window cap stay queued and are
// retried on the next drain; higher priorities get a larger effective
// cap against the same shared send history.
type SchedulerService struct {
	sender  delivery.Sender
	logger  *slog.Logger
	metrics *plotel.Metrics

	window time.Duration
	cap    int

	mu      sync.Mutex
	pending []agent.MessageToSend // insertion order
	sent    []time.Time           // timestamps of recent sends

	// now is replaceable in tests.
	now func() time.Time
}

func NewSchedulerService(cfg config.Rate, sender delivery.Sender, logger *slog.Logger) *SchedulerService {
	return &SchedulerService{
		sender: sender,
		logger: logger,
		window: cfg.Window,
		cap:    cfg.MaxPerWindow,
		now:    time.Now,
	}
}

// SetMetrics attaches metric instruments.
func (s *SchedulerService) SetMetrics(m *plotel.Metrics) {
	s.metrics = m
}

// SetNow replaces the scheduler's clock. Intended for tests.
func (s *SchedulerService) SetNow(now func() time.Time) {
	s.now = now
}

// Schedule queues a message for delivery. A zero ScheduledTime means
// the message is due immediately.
func (s *SchedulerService) Schedule(msg agent.MessageToSend) {
	s.mu.Lock()
	s.pending = append(s.pending, msg)
	n := len(s.pending)
	s.mu.Unlock()
	s.logger.Debug("message scheduled", "message_id", msg.ID, "channel_id", msg.ChannelID, "queued", n)
}

// PendingCount returns the number of queued messages.
func (s *SchedulerService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Drain walks the queue in insertion order and delivers every message
// that is due and admitted by the rate window, releasing at most the
// base cap per call whatever the priorities. Deferred messages keep
// their place; delivery failures drop the message. Returns the number
// of messages sent.
func (s *SchedulerService) Drain(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	s.pruneLocked(now)
	var (
		release      []agent.MessageToSend
		keep         []agent.MessageToSend
		rateDeferred int
	)
	for _, msg := range s.pending {
		if !msg.ScheduledTime.IsZero() && msg.ScheduledTime.After(now) {
			keep = append(keep, msg)
			continue
		}
		if len(release) >= s.cap || !s.admitLocked(msg.Priority, now) {
			rateDeferred++
			keep = append(keep, msg)
			continue
		}
		s.sent = append(s.sent, now)
		release = append(release, msg)
	}
	s.pending = keep
	s.mu.Unlock()

	if s.metrics != nil && rateDeferred > 0 {
		s.metrics.MessagesDeferred.Add(ctx, int64(rateDeferred))
	}

	sent := 0
	for _, msg := range release {
		if err := s.send(ctx, msg); err != nil {
			continue
		}
		sent++
	}
	if s.metrics != nil && sent > 0 {
		s.metrics.MessagesSent.Add(ctx, int64(sent))
	}
	if sent > 0 || len(release) > 0 {
		s.logger.Info("outbound drain",
			"released", len(release), "sent", sent,
			"rate_deferred", rateDeferred, "queued", s.PendingCount())
	}
	return sent
}

// EnqueueOrSend attempts an immediate rate-checked delivery and queues
// the message for a later drain when it is not yet due or the window
// refuses it. Reports whether the message went out now; a failed send
// drops the message and reports false, matching Drain's drop policy.
func (s *SchedulerService) EnqueueOrSend(ctx context.Context, msg agent.MessageToSend) bool {
	now := s.now()

	s.mu.Lock()
	s.pruneLocked(now)
	due := msg.ScheduledTime.IsZero() || !msg.ScheduledTime.After(now)
	if !due || !s.admitLocked(msg.Priority, now) {
		s.pending = append(s.pending, msg)
		s.mu.Unlock()
		if s.metrics != nil && due {
			s.metrics.MessagesDeferred.Add(ctx, 1)
		}
		s.logger.Debug("immediate send deferred",
			"message_id", msg.ID, "channel_id", msg.ChannelID, "due", due)
		return false
	}
	s.sent = append(s.sent, now)
	s.mu.Unlock()

	if err := s.send(ctx, msg); err != nil {
		return false
	}
	if s.metrics != nil {
		s.metrics.MessagesSent.Add(ctx, 1)
	}
	return true
}

// send delivers one message to the sender. Failures are logged and the
// message is dropped.
func (s *SchedulerService) send(ctx context.Context, msg agent.MessageToSend) error {
	out := delivery.Outbound{
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		Content:   msg.Content,
		Priority:  string(msg.Priority),
	}
	_, span := plotel.StartDeliverySpan(ctx, msg.ID, msg.ChannelID)
	err := s.sender.Send(ctx, out)
	span.End()
	if err != nil {
		s.logger.Error("outbound send failed, dropping message",
			"message_id", msg.ID, "channel_id", msg.ChannelID, "error", err)
	}
	return err
}

// admitLocked reports whether one more send fits the window for the
// given priority. The effective cap scales with the priority's
// admission factor, but the send history is shared across priorities.
func (s *SchedulerService) admitLocked(p agent.Priority, now time.Time) bool {
	cutoff := now.Add(-s.window)
	inWindow := 0
	for _, ts := range s.sent {
		if ts.After(cutoff) {
			inWindow++
		}
	}
	effective := int(float64(s.cap) * p.AdmissionFactor())
	return inWindow < effective
}

// pruneLocked discards send history older than twice the window.
func (s *SchedulerService) pruneLocked(now time.Time) {
	cutoff := now.Add(-2 * s.window)
	kept := s.sent[:0]
	for _, ts := range s.sent {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.sent = kept
}
