package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/domain/cloudevent"
	"github.com/planloop/planloop/internal/port/cache"
)

// Outcome is what reasoning produced for one incoming event.
type Outcome struct {
	Decisions    []agent.Decision
	ToolRequests []agent.ToolRequest
	Messages     []agent.MessageToSend
	Timers       []agent.ScheduledTimer
}

// toolRoute maps a CloudEvent type to its backend tool.
type toolRoute struct {
	Tool    string
	Service string
}

// cloudEventRoutes maps the Discord adapter's event types onto gateway
// tools. Events without a route produce a no_action decision.
var cloudEventRoutes = map[string]toolRoute{
	cloudevent.TypeCreateEvent:          {Tool: "create_event", Service: "event_manager"},
	cloudevent.TypeUpdateEvent:          {Tool: "update_event", Service: "event_manager"},
	cloudevent.TypeDeleteEvent:          {Tool: "delete_event", Service: "event_manager"},
	cloudevent.TypeListEvents:           {Tool: "list_events", Service: "event_manager"},
	cloudevent.TypeEventInfo:            {Tool: "get_event", Service: "event_manager"},
	cloudevent.TypeRSVPEvent:            {Tool: "process_rsvp", Service: "rsvp"},
	cloudevent.TypeRegisterGuild:        {Tool: "register_guild", Service: "guild_manager"},
	cloudevent.TypeDeregisterGuild:      {Tool: "deregister_guild", Service: "guild_manager"},
	cloudevent.TypePhotoVibeCheck:       {Tool: "submit_photo_dm", Service: "photo_vibe_check"},
	cloudevent.TypeSaveEventToGuildData: {Tool: "save_event_to_guild_data", Service: "guild_manager"},
}

// reminderTemplates are the message bodies per timer kind.
var reminderTemplates = map[string]string{
	"1_day_before": "Reminder: %s is happening tomorrow. RSVP if you haven't yet!",
	"day_of":       "Today's the day! %s is happening later today.",
	"event_time":   "%s is starting now. See you there!",
	"followup":     "Hope you enjoyed %s! Share your photos with the vibe check.",
}

// dedupeTTL is how long a seen CloudEvent ID suppresses reprocessing.
const dedupeTTL = 10 * time.Minute

// Reasoner turns incoming events into decisions. It is deterministic:
// routing is by trigger type and event type, with a cache to drop
// duplicate CloudEvent deliveries.
type Reasoner struct {
	cache  cache.Cache
	logger *slog.Logger
}

func NewReasoner(c cache.Cache, logger *slog.Logger) *Reasoner {
	return &Reasoner{cache: c, logger: logger}
}

// Reason produces the outcome for one event.
func (r *Reasoner) Reason(ctx context.Context, ev agent.IncomingEvent) Outcome {
	switch ev.TriggerType {
	case agent.TriggerCloudEvent:
		return r.reasonCloudEvent(ctx, ev)
	case agent.TriggerTimer, agent.TriggerRSVPReminder, agent.TriggerFollowup:
		return r.reasonTimer(ev)
	case agent.TriggerDiscordMessage:
		return r.reasonDiscordMessage(ev)
	default:
		return Outcome{Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionNoAction, fmt.Sprintf("unhandled trigger type %q", ev.TriggerType), 1.0),
		}}
	}
}

func (r *Reasoner) reasonCloudEvent(ctx context.Context, ev agent.IncomingEvent) Outcome {
	ce := ev.CloudEvent
	if ce == nil {
		return Outcome{Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionNoAction, "cloudevent trigger without envelope", 1.0),
		}}
	}

	if r.seenBefore(ctx, ce.ID) {
		r.logger.Info("duplicate cloudevent dropped", "event_id", ce.ID, "event_type", ce.Type)
		return Outcome{Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionNoAction, "duplicate cloudevent delivery", 1.0),
		}}
	}

	if ce.Type == cloudevent.TypeMessage {
		if ev.Discord == nil {
			channelID, _ := ce.Data["channel_id"].(string)
			userID, _ := ce.Data["user_id"].(string)
			ev.Discord = &agent.DiscordContext{ChannelID: channelID, UserID: userID}
		}
		if ev.RawData == nil {
			ev.RawData = ce.Data
		}
		return r.reasonDiscordMessage(ev)
	}

	route, ok := cloudEventRoutes[ce.Type]
	if !ok {
		return Outcome{Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionNoAction, fmt.Sprintf("no tool route for event type %q", ce.Type), 0.9),
		}}
	}

	args := make(map[string]any, len(ce.Data)+1)
	for k, v := range ce.Data {
		args[k] = v
	}
	// The Discord adapter nests the event payload under event_data, with
	// ids like event_id and guild_id as top-level companions. Tools read
	// flat arguments, so lift the nested fields; explicit top-level keys
	// keep priority.
	if nested, ok := ce.Data["event_data"].(map[string]any); ok {
		delete(args, "event_data")
		for k, v := range nested {
			if _, exists := args[k]; !exists {
				args[k] = v
			}
		}
	}
	if ev.Metadata != nil {
		if taskID, ok := ev.Metadata["task_id"].(string); ok {
			args["metadata"] = mergeMetadata(args["metadata"], "task_id", taskID)
		}
	}

	req := agent.NewToolRequest(route.Tool, args)
	req.SourceEventID = ev.ID

	decision := agent.NewDecision(agent.DecisionUseTool,
		fmt.Sprintf("%s routes to %s.%s", ce.Type, route.Service, route.Tool), 0.95)
	decision.Metadata = map[string]any{"tool": route.Tool, "service": route.Service}

	return Outcome{
		Decisions:    []agent.Decision{decision},
		ToolRequests: []agent.ToolRequest{req},
	}
}

func (r *Reasoner) reasonTimer(ev agent.IncomingEvent) Outcome {
	tc := ev.Timer
	if tc == nil {
		return Outcome{Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionNoAction, "timer trigger without context", 1.0),
		}}
	}

	tmpl, ok := reminderTemplates[tc.Kind]
	if !ok {
		tmpl = "Update on %s."
	}
	title, _ := ev.RawData["event_title"].(string)
	if title == "" {
		title = tc.EventID
	}
	channelID, _ := ev.RawData["channel_id"].(string)
	if channelID == "" {
		return Outcome{Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionNoAction, "timer fired without a target channel", 0.9),
		}}
	}

	msg := agent.NewMessage(channelID, fmt.Sprintf(tmpl, title), ev.Priority)
	msg.Metadata = map[string]any{"event_id": tc.EventID, "timer_kind": tc.Kind}

	return Outcome{
		Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionSendMessage,
				fmt.Sprintf("reminder %q for event %s", tc.Kind, tc.EventID), 0.95),
		},
		Messages: []agent.MessageToSend{msg},
	}
}

// messageKeywords mark a plain message as planning-related and worth
// an acknowledgment.
var messageKeywords = []string{"event", "rsvp", "photo", "remind", "schedule", "plan"}

// reasonDiscordMessage acknowledges planning-related messages after a
// keyword scan. Free-form conversation beyond acknowledgment is out of
// scope here.
func (r *Reasoner) reasonDiscordMessage(ev agent.IncomingEvent) Outcome {
	dc := ev.Discord
	if dc == nil || dc.ChannelID == "" {
		return Outcome{Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionNoAction, "discord message without channel", 1.0),
		}}
	}
	if content, ok := ev.RawData["content"].(string); ok && !hasPlanningKeyword(content) {
		return Outcome{Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionNoAction, "message has no planning keywords", 0.8),
		}}
	}
	msg := agent.NewMessage(dc.ChannelID, "Got it! I'm on it.", agent.PriorityLow)
	return Outcome{
		Decisions: []agent.Decision{
			agent.NewDecision(agent.DecisionSendMessage, "acknowledge direct message", 0.8),
		},
		Messages: []agent.MessageToSend{msg},
	}
}

// seenBefore checks and records the CloudEvent ID in the dedupe cache.
// Cache failures never block processing.
func (r *Reasoner) seenBefore(ctx context.Context, id string) bool {
	if r.cache == nil || id == "" {
		return false
	}
	key := "cloudevent:" + id
	_, found, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("dedupe cache get failed", "error", err)
		return false
	}
	if found {
		return true
	}
	if err := r.cache.Set(ctx, key, []byte{1}, dedupeTTL); err != nil {
		r.logger.Warn("dedupe cache set failed", "error", err)
	}
	return false
}

func hasPlanningKeyword(content string) bool {
	lowered := strings.ToLower(content)
	for _, kw := range messageKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func mergeMetadata(existing any, key, value string) map[string]any {
	meta, _ := existing.(map[string]any)
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta[key] = value
	return meta
}
