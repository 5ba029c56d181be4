package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	planhttp "github.com/planloop/planloop/internal/adapter/http"
	"github.com/planloop/planloop/internal/adapter/ws"
	"github.com/planloop/planloop/internal/config"
	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/port/delivery"
	"github.com/planloop/planloop/internal/port/messagequeue"
	"github.com/planloop/planloop/internal/service"
)

// stubQueue accepts publishes and reports a configurable connection state.
type stubQueue struct {
	connected bool
	published []string
}

func (q *stubQueue) Publish(_ context.Context, subject string, _ []byte) error {
	q.published = append(q.published, subject)
	return nil
}

func (q *stubQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *stubQueue) Drain() error      { return nil }
func (q *stubQueue) Close() error      { return nil }
func (q *stubQueue) IsConnected() bool { return q.connected }

type nopSender struct{}

func (nopSender) Name() string                                  { return "nop" }
func (nopSender) Send(context.Context, delivery.Outbound) error { return nil }

func newServer(t *testing.T, queue messagequeue.Queue) (*httptest.Server, *service.TaskRegistry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := service.NewTaskRegistry()
	gw := service.NewGatewayService(service.NewRBACService(logger), logger)
	sched := service.NewSchedulerService(config.Rate{Window: time.Minute, MaxPerWindow: 10}, nopSender{}, logger)
	agentSvc := service.NewAgentService(agent.Config{PollInterval: time.Second}, service.NewReasoner(nil, logger), gw, sched, registry, queue, logger)
	ingest := service.NewIngestService(queue, registry, agentSvc, logger)
	hub := ws.NewHub()

	r := chi.NewRouter()
	planhttp.MountRoutes(r, planhttp.NewHandlers(ingest, registry, agentSvc, hub, queue))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, registry
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, into any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

const validEvent = `{
	"id": "ce-1",
	"specversion": "1.0",
	"type": "com.tlt.discord.create-event",
	"source": "discord-adapter",
	"data": {"title": "Picnic"}
}`

func TestCloudEventAccepted(t *testing.T) {
	queue := &stubQueue{connected: true}
	srv, registry := newServer(t, queue)

	resp := postJSON(t, srv.URL+"/cloudevents", validEvent)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "accepted" || body["cloudevent_id"] != "ce-1" {
		t.Fatalf("body = %v", body)
	}
	taskID, _ := body["task_id"].(string)
	if taskID == "" {
		t.Fatal("task_id missing")
	}
	if _, ok := registry.Get(taskID); !ok {
		t.Fatal("task not registered")
	}
	if len(queue.published) != 1 || !strings.HasPrefix(queue.published[0], "events.inbound.") {
		t.Fatalf("published = %v", queue.published)
	}

	// The task is visible on the monitor endpoint.
	var taskBody map[string]any
	getResp := getJSON(t, srv.URL+"/monitor/tasks/"+taskID, &taskBody)
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("task status code = %d", getResp.StatusCode)
	}
	if taskBody["cloudevent_id"] != "ce-1" {
		t.Fatalf("task body = %v", taskBody)
	}
}

func TestCloudEventMalformed(t *testing.T) {
	srv, _ := newServer(t, &stubQueue{connected: true})

	resp := postJSON(t, srv.URL+"/cloudevents", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCloudEventMissingRequiredAttributes(t *testing.T) {
	srv, _ := newServer(t, &stubQueue{connected: true})

	resp := postJSON(t, srv.URL+"/cloudevents", `{"type":"x","source":"y"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCloudEventUnavailableWhenQueueDown(t *testing.T) {
	srv, _ := newServer(t, &stubQueue{connected: false})

	resp := postJSON(t, srv.URL+"/cloudevents", validEvent)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestUnknownTaskIs404(t *testing.T) {
	srv, _ := newServer(t, &stubQueue{connected: true})

	resp := getJSON(t, srv.URL+"/monitor/tasks/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMonitorStatusAndHealth(t *testing.T) {
	srv, _ := newServer(t, &stubQueue{connected: true})

	var status map[string]any
	resp := getJSON(t, srv.URL+"/monitor/status", &status)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	if id, _ := status["agent_id"].(string); !strings.HasPrefix(id, "agent_") {
		t.Fatalf("agent_id = %v", status["agent_id"])
	}

	var health map[string]any
	resp = getJSON(t, srv.URL+"/health", &health)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health code = %d", resp.StatusCode)
	}
	if health["status"] != "ok" || health["nats_connected"] != true {
		t.Fatalf("health = %v", health)
	}

	var metrics map[string]any
	resp = getJSON(t, srv.URL+"/monitor/metrics", &metrics)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics code = %d", resp.StatusCode)
	}
}
