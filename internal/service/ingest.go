package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	plotel "github.com/planloop/planloop/internal/adapter/otel"
	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/domain/cloudevent"
	"github.com/planloop/planloop/internal/domain/task"
	"github.com/planloop/planloop/internal/port/messagequeue"
)

// maxRetainedTasks bounds the registry; once exceeded, the oldest
// terminal tasks are evicted first.
const maxRetainedTasks = 1000

// TaskRegistry tracks accepted work for the monitoring endpoints.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
	order []string // insertion order, oldest first
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]*task.Task)}
}

// Add registers a task and evicts old terminal tasks past the bound.
func (r *TaskRegistry) Add(t *task.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)

	if len(r.tasks) <= maxRetainedTasks {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if len(r.tasks) <= maxRetainedTasks {
			kept = append(kept, id)
			continue
		}
		if t, ok := r.tasks[id]; ok && t.Terminal() {
			delete(r.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

// Get returns a task by ID.
func (r *TaskRegistry) Get(id string) (*task.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}

// Update applies fn to the task with the given ID under the lock.
func (r *TaskRegistry) Update(id string, fn func(*task.Task)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false
	}
	fn(t)
	return true
}

// Counts returns the number of tasks per status.
func (r *TaskRegistry) Counts() map[task.Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[task.Status]int, 4)
	for _, t := range r.tasks {
		counts[t.Status]++
	}
	return counts
}

// Len returns the number of retained tasks.
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Inbox receives incoming events for processing.
type Inbox interface {
	Submit(ev agent.IncomingEvent) error
}

// envelope is the wire format between ingestion and the agent
// subscriber on the message queue.
type envelope struct {
	TaskID string           `json:"task_id"`
	Event  cloudevent.Event `json:"event"`
}

// IngestService accepts CloudEvents, records them as tasks, and moves
// them through the message queue to the agent inbox.
type IngestService struct {
	queue    messagequeue.Queue
	registry *TaskRegistry
	inbox    Inbox
	logger   *slog.Logger
	metrics  *plotel.Metrics
}

func NewIngestService(queue messagequeue.Queue, registry *TaskRegistry, inbox Inbox, logger *slog.Logger) *IngestService {
	return &IngestService{
		queue:    queue,
		registry: registry,
		inbox:    inbox,
		logger:   logger,
	}
}

// SetMetrics attaches metric instruments.
func (s *IngestService) SetMetrics(m *plotel.Metrics) {
	s.metrics = m
}

// Accept validates an inbound CloudEvent, registers a pending task,
// and publishes the event for the agent subscriber. The returned task
// carries the ID callers poll on the monitoring endpoint.
func (s *IngestService) Accept(ctx context.Context, ev cloudevent.Event) (*task.Task, error) {
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cloudevent: %w", err)
	}

	t := task.New(ev.ID, ev.Type)
	s.registry.Add(t)

	data, err := json.Marshal(envelope{TaskID: t.ID, Event: ev})
	if err != nil {
		t.MarkFailed(err)
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	subject := messagequeue.SubjectEventsInbound + "." + ev.Type
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		t.MarkFailed(err)
		return nil, fmt.Errorf("publish inbound event: %w", err)
	}

	if s.metrics != nil {
		s.metrics.EventsAccepted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_type", ev.Type)))
	}
	s.logger.Info("cloudevent accepted",
		"task_id", t.ID, "event_id", ev.ID, "event_type", ev.Type, "source", ev.Source)
	return t, nil
}

// Start subscribes to inbound events and forwards them to the agent
// inbox. The returned cancel function stops the subscription.
func (s *IngestService) Start(ctx context.Context) (cancel func(), err error) {
	return s.queue.Subscribe(ctx, messagequeue.SubjectEventsInboundAll, s.handle)
}

func (s *IngestService) handle(_ context.Context, subject string, data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Error("bad inbound envelope", "subject", subject, "error", err)
		return err
	}

	ev := agent.NewIncomingEvent(agent.TriggerCloudEvent, priorityOf(env.Event))
	ev.CloudEvent = &agent.CloudEventContext{
		ID:      env.Event.ID,
		Type:    env.Event.Type,
		Source:  env.Event.Source,
		Subject: env.Event.Subject,
		Time:    env.Event.Time,
		Data:    env.Event.Data,
	}
	ev.Metadata = map[string]any{"task_id": env.TaskID}

	s.registry.Update(env.TaskID, (*task.Task).MarkProcessing)

	if err := s.inbox.Submit(ev); err != nil {
		s.registry.Update(env.TaskID, func(t *task.Task) { t.MarkFailed(err) })
		s.logger.Error("inbox rejected event", "task_id", env.TaskID, "error", err)
		return err
	}
	return nil
}

// priorityOf reads an optional "priority" hint from the event payload.
func priorityOf(ev cloudevent.Event) agent.Priority {
	if ev.Data != nil {
		if s, ok := ev.Data["priority"].(string); ok {
			return agent.ParsePriority(s)
		}
	}
	return agent.PriorityNormal
}
