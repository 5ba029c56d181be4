package http

import (
	"net/http"

	"github.com/planloop/planloop/internal/adapter/ws"
	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/domain/cloudevent"
	"github.com/planloop/planloop/internal/domain/task"
	"github.com/planloop/planloop/internal/port/messagequeue"
	"github.com/planloop/planloop/internal/service"
)

// cloudEventBodyLimit bounds inbound CloudEvent payloads.
const cloudEventBodyLimit = 1 << 20

// Handlers bundles the dependencies of the HTTP surface.
type Handlers struct {
	ingest   *service.IngestService
	registry *service.TaskRegistry
	agent    *service.AgentService
	hub      *ws.Hub
	queue    messagequeue.Queue
}

func NewHandlers(
	ingest *service.IngestService,
	registry *service.TaskRegistry,
	agentSvc *service.AgentService,
	hub *ws.Hub,
	queue messagequeue.Queue,
) *Handlers {
	return &Handlers{
		ingest:   ingest,
		registry: registry,
		agent:    agentSvc,
		hub:      hub,
		queue:    queue,
	}
}

// HandleCloudEvent accepts a CloudEvents v1.0 envelope for processing.
func (h *Handlers) HandleCloudEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := readJSON[cloudevent.Event](w, r, cloudEventBodyLimit)
	if !ok {
		return
	}
	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.available() {
		writeError(w, http.StatusServiceUnavailable, "event processing is unavailable")
		return
	}

	t, err := h.ingest.Accept(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to accept event")
		return
	}

	h.hub.BroadcastEvent(r.Context(), ws.EventTaskStatus, ws.TaskStatusEvent{
		TaskID:    t.ID,
		EventType: t.EventType,
		Status:    string(t.Status),
	})

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":        "accepted",
		"cloudevent_id": ev.ID,
		"task_id":       t.ID,
	})
}

// available reports whether the pipeline can take new events.
func (h *Handlers) available() bool {
	if h.queue == nil || !h.queue.IsConnected() {
		return false
	}
	status := h.agent.Snapshot().Status
	return status != agent.StatusStopping
}

// HandleGetTask returns the status of one accepted event.
func (h *Handlers) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "task_id")
	t, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleListTasks returns aggregate task counts.
func (h *Handlers) HandleListTasks(w http.ResponseWriter, _ *http.Request) {
	counts := h.registry.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"total":      h.registry.Len(),
		"pending":    counts[task.StatusPending],
		"processing": counts[task.StatusProcessing],
		"completed":  counts[task.StatusCompleted],
		"failed":     counts[task.StatusFailed],
	})
}

// HandleStatus returns the agent's last published snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.agent.Snapshot())
}

// HandleMetrics returns a lightweight operational summary.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := h.agent.Snapshot()
	counts := h.registry.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":          snap.AgentID,
		"status":            snap.Status,
		"iteration_count":   snap.IterationCount,
		"monitoring_cycles": snap.MonitoringCycles,
		"pending_events":    snap.PendingEvents,
		"pending_messages":  snap.PendingMessages,
		"tool_calls_total":  snap.ToolCallsTotal,
		"errors_recorded":   snap.ErrorsRecorded,
		"tasks_completed":   counts[task.StatusCompleted],
		"tasks_failed":      counts[task.StatusFailed],
		"ws_connections":    h.hub.ConnectionCount(),
	})
}

// HandleHealth is the liveness endpoint.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"nats_connected": h.queue != nil && h.queue.IsConnected(),
	})
}
