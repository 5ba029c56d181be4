// Package task tracks the lifecycle of accepted CloudEvents as they
// move through the agent pipeline.
package task

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task is one unit of accepted work. A Task is created when a
// CloudEvent passes validation and is updated as the agent acts on it.
type Task struct {
	ID           string         `json:"id"`
	CloudEventID string         `json:"cloudevent_id"`
	EventType    string         `json:"event_type"`
	Status       Status         `json:"status"`
	Result       map[string]any `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func New(cloudEventID, eventType string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:           uuid.NewString(),
		CloudEventID: cloudEventID,
		EventType:    eventType,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (t *Task) MarkProcessing() {
	t.Status = StatusProcessing
	t.UpdatedAt = time.Now().UTC()
}

func (t *Task) MarkCompleted(result map[string]any) {
	t.Status = StatusCompleted
	t.Result = result
	t.UpdatedAt = time.Now().UTC()
}

func (t *Task) MarkFailed(err error) {
	t.Status = StatusFailed
	if err != nil {
		t.Error = err.Error()
	}
	t.UpdatedAt = time.Now().UTC()
}

// Terminal reports whether the task has reached a final status.
func (t *Task) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
