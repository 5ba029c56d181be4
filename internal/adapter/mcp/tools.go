package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/planloop/planloop/internal/service"
)

// toolDescriptions maps gateway tool names to MCP descriptions. Tools
// registered on the gateway without an entry here get a generic one.
var toolDescriptions = map[string]string{
	"create_event":                "Create a scheduled event from CloudEvent data",
	"update_event":                "Update fields of an existing event",
	"delete_event":                "Delete an event by ID",
	"get_event":                   "Get details of a single event by ID",
	"get_all_events":              "Get every stored event across all guilds",
	"list_events":                 "List events, optionally filtered by guild",
	"search_events":               "Search events by title or description substring",
	"save_event_to_guild_data":    "Attach an event to a guild's saved event list",
	"process_rsvp":                "Record an emoji RSVP reaction for an event",
	"get_rsvp":                    "Get a single RSVP entry",
	"get_user_rsvp":               "Get one user's RSVP for an event",
	"update_user_rsvp":            "Update one user's RSVP for an event",
	"delete_rsvp":                 "Delete a user's RSVP for an event",
	"get_event_rsvps":             "List all RSVPs recorded for an event",
	"get_rsvp_analytics":          "Tally yes/no/maybe responses for an event",
	"get_rsvp_stats":              "Aggregate RSVP statistics across all events",
	"register_guild":              "Register a Discord guild with the platform",
	"deregister_guild":            "Remove a guild's registration",
	"get_guild":                   "Get a registered guild's record",
	"get_guild_info":              "Get a registered guild's record",
	"list_guilds":                 "List all registered guilds",
	"submit_photo_dm":             "Submit a photo DM to an active collection",
	"get_photo_status":            "Get the status of a submitted photo",
	"activate_photo_collection":   "Open photo submissions for a guild",
	"deactivate_photo_collection": "Close photo submissions for a guild",
	"update_photo_settings":       "Update photo collection settings for a guild",
	"create_canvas":               "Create a collaborative canvas board for an event",
	"place_element":               "Place an element on a canvas board",
	"get_canvas":                  "Get a canvas board with all placed elements",
	"get_canvas_summary":          "Get element counts for a canvas board",
	"add_policy":                  "Add an access rule to the policy table (admin)",
	"remove_policy":               "Remove an access rule from the policy table (admin)",
	"list_policies":               "List the active access rule patterns (admin)",
	"assign_role":                 "Assign a role to a user ID (admin)",
}

// registerTools registers one MCP tool per gateway tool, all dispatched
// through the same handler.
func (s *Server) registerTools() {
	if s.deps.Gateway == nil {
		return
	}
	names := s.deps.Gateway.ListTools()
	serverTools := make([]mcpserver.ServerTool, 0, len(names))
	for _, name := range names {
		serverTools = append(serverTools, s.gatewayTool(name))
	}
	s.mcpServer.AddTools(serverTools...)
}

func (s *Server) gatewayTool(name string) mcpserver.ServerTool {
	desc, ok := toolDescriptions[name]
	if !ok {
		desc = fmt.Sprintf("Invoke the %s tool through the planloop gateway", name)
	}
	tool := mcplib.NewTool(name,
		mcplib.WithDescription(desc),
		mcplib.WithString("user_id",
			mcplib.Description("Caller's Discord user ID, used for authorization"),
		),
		mcplib.WithString("user_role",
			mcplib.Description("Caller's role: admin, event_owner, or user"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGatewayTool,
	}
}

func (s *Server) handleGatewayTool(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Gateway == nil {
		return mcplib.NewToolResultError("tool gateway not configured"), nil
	}
	name := req.Params.Name
	args := req.GetArguments()
	if args == nil {
		args = map[string]any{}
	}

	result, err := s.deps.Gateway.CallTool(ctx, name, args)
	if err != nil {
		var toolErr *service.ToolError
		if errors.As(err, &toolErr) {
			return mcplib.NewToolResultError(
				fmt.Sprintf("%s: %s", toolErr.Code, toolErr.Message),
			), nil
		}
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("tool %s failed", name), err,
		), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal tool result", err), nil
	}
	return toolResultJSON(string(data)), nil
}
