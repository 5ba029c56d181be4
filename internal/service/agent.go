package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	plotel "github.com/planloop/planloop/internal/adapter/otel"
	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/domain/task"
	"github.com/planloop/planloop/internal/port/messagequeue"
)

// ErrAgentStopped is returned by Submit once the agent no longer
// accepts events.
var ErrAgentStopped = errors.New("agent: stopped")

// debugCycleLimit bounds monitoring cycles when debug mode is on.
const debugCycleLimit = 3

// AgentService runs the ambient event loop. The agent's State is owned
// exclusively by the Run goroutine; everything outside communicates
// through the guarded inbox and the published snapshot.
type AgentService struct {
	state     *agent.State
	reasoner  *Reasoner
	gateway   *GatewayService
	scheduler *SchedulerService
	registry  *TaskRegistry
	queue     messagequeue.Queue
	logger    *slog.Logger
	metrics   *plotel.Metrics

	mu      sync.Mutex
	inbox   []agent.IncomingEvent
	stopped bool

	snapMu sync.RWMutex
	snap   agent.Snapshot

	// onSnapshot, when set, receives every published snapshot. The
	// websocket hub hangs off this hook.
	onSnapshot func(agent.Snapshot)

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewAgentService(
	cfg agent.Config,
	reasoner *Reasoner,
	gateway *GatewayService,
	scheduler *SchedulerService,
	registry *TaskRegistry,
	queue messagequeue.Queue,
	logger *slog.Logger,
) *AgentService {
	a := &AgentService{
		state:     agent.NewState(cfg),
		reasoner:  reasoner,
		gateway:   gateway,
		scheduler: scheduler,
		registry:  registry,
		queue:     queue,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
	a.publishSnapshot(context.Background())
	return a
}

// SetMetrics attaches metric instruments. Must be called before Run.
func (a *AgentService) SetMetrics(m *plotel.Metrics) {
	a.metrics = m
}

// OnSnapshot registers a hook invoked with every published snapshot.
// Must be called before Run.
func (a *AgentService) OnSnapshot(fn func(agent.Snapshot)) {
	a.onSnapshot = fn
}

// Submit adds an event to the agent inbox.
func (a *AgentService) Submit(ev agent.IncomingEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return ErrAgentStopped
	}
	a.inbox = append(a.inbox, ev)
	return nil
}

// Stop asks the run loop to exit after the current iteration.
func (a *AgentService) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

// Snapshot returns the last published state snapshot.
func (a *AgentService) Snapshot() agent.Snapshot {
	a.snapMu.RLock()
	defer a.snapMu.RUnlock()
	return a.snap
}

// Run executes the state machine until the context is canceled, Stop
// is called, or a routing guard ends the loop.
func (a *AgentService) Run(ctx context.Context) error {
	a.state.Status = agent.StatusInitializing
	a.state.Step("initialize", "startup")
	a.state.AvailableTools = a.gateway.ListTools()
	a.state.Status = agent.StatusIdle
	a.logger.Info("agent started",
		"agent_id", a.state.AgentID, "tools", len(a.state.AvailableTools))

	defer func() {
		a.mu.Lock()
		a.stopped = true
		a.mu.Unlock()
		a.state.Status = agent.StatusStopping
		a.publishSnapshot(ctx)
		a.logger.Info("agent stopped",
			"agent_id", a.state.AgentID,
			"iterations", a.state.IterationCount,
			"cycles", a.state.MonitoringCycles)
	}()

	for {
		stop, reason := a.monitor(ctx)
		if stop {
			a.logger.Info("agent loop ending", "reason", reason)
			return nil
		}
	}
}

// monitor is the routing phase. It decides what the next step is and
// either executes it inline or sleeps out an idle cycle. Guard order
// matters: iteration exhaustion is checked before pending work, pending
// work before shutdown housekeeping.
func (a *AgentService) monitor(ctx context.Context) (stop bool, reason string) {
	a.state.Touch("monitor", "routing")
	a.drainInbox()
	a.publishSnapshot(ctx)

	cfg := a.state.Config

	if cfg.MaxIterations > 0 && a.state.IterationCount >= cfg.MaxIterations {
		return true, "max iterations reached"
	}

	if len(a.state.PendingEvents) > 0 {
		// The idle-cycle guards count consecutive no-event passes.
		a.state.MonitoringCycles = 0
		a.process(ctx)
		return false, ""
	}

	select {
	case <-ctx.Done():
		return true, "context canceled"
	case <-a.stopCh:
		return true, "stop requested"
	default:
	}

	if a.state.Status == agent.StatusError {
		if a.state.RetryCount >= cfg.MaxRetryAttempts {
			return true, "retry budget exhausted"
		}
		a.logger.Warn("recovering from error",
			"retry_count", a.state.RetryCount, "max_retries", cfg.MaxRetryAttempts)
		a.state.Status = agent.StatusIdle
		return false, ""
	}

	if cfg.DebugMode && a.state.MonitoringCycles >= debugCycleLimit {
		return true, "debug cycle limit"
	}

	a.state.MonitoringCycles++
	if cfg.IdleCycleLimit > 0 && a.state.MonitoringCycles >= cfg.IdleCycleLimit {
		return true, "idle cycle limit"
	}

	// Idle housekeeping: release any due outbound messages, then wait
	// out the poll interval.
	a.scheduler.Drain(ctx)

	timer := time.NewTimer(cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true, "context canceled"
	case <-a.stopCh:
		return true, "stop requested"
	case <-timer.C:
	}
	return false, ""
}

// process runs one event through reasoning and action.
func (a *AgentService) process(ctx context.Context) {
	ev, ok := a.state.PopEvent()
	if !ok {
		return
	}
	a.state.Status = agent.StatusProcessing
	a.state.Step("reason", string(ev.TriggerType))

	started := time.Now()
	ctx, span := plotel.StartEventSpan(ctx, ev.ID, string(ev.TriggerType))
	defer func() {
		span.End()
		if a.metrics != nil {
			a.metrics.EventsProcessed.Add(ctx, 1)
			a.metrics.ProcessDuration.Record(ctx, time.Since(started).Seconds())
		}
	}()

	outcome := a.reasoner.Reason(ctx, ev)
	for _, d := range outcome.Decisions {
		a.state.AppendDecision(d)
	}
	a.state.PendingToolRequests = append(a.state.PendingToolRequests, outcome.ToolRequests...)
	a.state.PendingMessages = append(a.state.PendingMessages, outcome.Messages...)

	a.act(ctx, ev)

	if a.state.Status == agent.StatusProcessing {
		a.state.Status = agent.StatusIdle
		a.state.ResetRetries()
	}
	a.publishSnapshot(ctx)
}

// act executes the pending work produced by reasoning: tool requests
// first, then outbound messages.
func (a *AgentService) act(ctx context.Context, ev agent.IncomingEvent) {
	if len(a.state.PendingToolRequests) > 0 || a.state.RecentDecisionRequiresTool(3) {
		a.executeToolRequests(ctx)
	}

	if len(a.state.PendingMessages) > 0 {
		a.state.Step("act", "deliver_messages")
		for _, msg := range a.state.PendingMessages {
			// Urgent messages bypass the queue when the window has room.
			if msg.Priority == agent.PriorityUrgent {
				a.scheduler.EnqueueOrSend(ctx, msg)
				continue
			}
			a.scheduler.Schedule(msg)
		}
		a.state.PendingMessages = a.state.PendingMessages[:0]
		a.scheduler.Drain(ctx)
	}

	// Events that produced neither tool calls nor messages still
	// resolve their task.
	a.finishTask(ev, nil, nil)
}

func (a *AgentService) executeToolRequests(ctx context.Context) {
	pending := a.state.PendingToolRequests
	a.state.PendingToolRequests = nil

	for _, req := range pending {
		a.state.Step("act", "tool:"+req.Tool)
		toolCtx, span := plotel.StartToolCallSpan(ctx, req.ID, req.Tool)
		result, err := a.gateway.CallTool(toolCtx, req.Tool, req.Args)
		span.End()

		rec := agent.ToolCallRecord{
			RequestID: req.ID,
			Tool:      req.Tool,
			Success:   err == nil,
			Result:    result,
			Timestamp: time.Now().UTC(),
		}
		if err != nil {
			rec.Error = err.Error()
			a.state.RecordToolCall(rec)
			a.state.RecordError("act", fmt.Errorf("tool %s: %w", req.Tool, err))
			a.failTaskFor(req.Args, err)
			a.logger.Error("tool call failed", "tool", req.Tool, "error", err)
			continue
		}
		a.state.RecordToolCall(rec)
		a.completeTaskFor(req.Args, result)
		a.logger.Info("tool call completed", "tool", req.Tool)
	}
}

// finishTask marks the event's task completed when it is still
// in-flight, for events whose outcome needed no tool call.
func (a *AgentService) finishTask(ev agent.IncomingEvent, result map[string]any, err error) {
	taskID := taskIDOf(ev.Metadata)
	if taskID == "" {
		return
	}
	a.registry.Update(taskID, func(t *task.Task) {
		if t.Terminal() {
			return
		}
		if err != nil {
			t.MarkFailed(err)
			return
		}
		t.MarkCompleted(result)
	})
}

func (a *AgentService) completeTaskFor(args map[string]any, result map[string]any) {
	if id := taskIDOfArgs(args); id != "" {
		a.registry.Update(id, func(t *task.Task) { t.MarkCompleted(result) })
	}
}

func (a *AgentService) failTaskFor(args map[string]any, err error) {
	if id := taskIDOfArgs(args); id != "" {
		a.registry.Update(id, func(t *task.Task) { t.MarkFailed(err) })
	}
}

func taskIDOf(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	id, _ := meta["task_id"].(string)
	return id
}

func taskIDOfArgs(args map[string]any) string {
	meta, _ := args["metadata"].(map[string]any)
	return taskIDOf(meta)
}

// drainInbox moves externally submitted events into the state's queue,
// preserving arrival order.
func (a *AgentService) drainInbox() {
	a.mu.Lock()
	incoming := a.inbox
	a.inbox = nil
	a.mu.Unlock()
	for _, ev := range incoming {
		a.state.PushEvent(ev)
	}
}

// publishSnapshot refreshes the shared snapshot, notifies the hook, and
// best-effort publishes it on the status subject.
func (a *AgentService) publishSnapshot(ctx context.Context) {
	snap := a.state.Snapshot()

	a.snapMu.Lock()
	a.snap = snap
	a.snapMu.Unlock()

	if a.onSnapshot != nil {
		a.onSnapshot(snap)
	}
	if a.queue != nil && a.queue.IsConnected() {
		if data, err := json.Marshal(snap); err == nil {
			_ = a.queue.Publish(ctx, messagequeue.SubjectAgentStatus, data)
		}
	}
}
