package rbac

// allRoles is shorthand for rules open to every authenticated role.
var allRoles = []Role{RoleAdmin, RoleEventOwner, RoleUser}

// ownerRoles is shorthand for rules restricted to owners and admins.
var ownerRoles = []Role{RoleAdmin, RoleEventOwner}

// adminOnly is shorthand for admin-restricted rules.
var adminOnly = []Role{RoleAdmin}

// DefaultRules returns the production policy table for the tool gateway.
// Evaluation is first-match-wins, so specific patterns come first and the
// admin catch-all wildcard must stay last: it grants admins every tool not
// named above it and denies everyone else anything unmatched.
func DefaultRules() RuleSet {
	return RuleSet{
		// Event reads are open to everyone.
		{ToolPattern: "get_event*", AllowedRoles: allRoles, Description: "All users can read event data"},
		{ToolPattern: "list_*", AllowedRoles: allRoles, Description: "All users can list resources"},
		{ToolPattern: "search_events", AllowedRoles: allRoles, Description: "All users can search events"},

		// Event writes are restricted to owners and admins. The stats and
		// by-creator queries expose aggregate data, so they follow the
		// write restriction rather than the read one.
		{ToolPattern: "create_event", AllowedRoles: ownerRoles, Description: "Only event owners and admins can create events"},
		{ToolPattern: "update_event", AllowedRoles: ownerRoles, Description: "Only event owners and admins can update events"},
		{ToolPattern: "delete_event", AllowedRoles: ownerRoles, Description: "Only event owners and admins can delete events"},
		{ToolPattern: "save_event_to_guild_data", AllowedRoles: ownerRoles, Description: "Only event owners and admins can persist guild event data"},

		// RSVP self-service for everyone.
		{ToolPattern: "create_rsvp", AllowedRoles: allRoles, Description: "All users can create RSVPs"},
		{ToolPattern: "update_rsvp", AllowedRoles: allRoles, Description: "All users can update their RSVPs"},
		{ToolPattern: "delete_rsvp", AllowedRoles: allRoles, Description: "All users can delete their RSVPs"},
		{ToolPattern: "get_rsvp", AllowedRoles: allRoles, Description: "All users can get RSVP details"},
		{ToolPattern: "get_user_rsvp*", AllowedRoles: allRoles, Description: "All users can check their own RSVP status"},
		{ToolPattern: "update_user_rsvp", AllowedRoles: allRoles, Description: "All users can update their RSVP for events"},
		{ToolPattern: "process_rsvp", AllowedRoles: allRoles, Description: "All users can submit RSVP reactions"},

		// RSVP analytics expose other users' responses.
		{ToolPattern: "get_event_rsvps", AllowedRoles: ownerRoles, Description: "Only event owners and admins can view all RSVPs for an event"},
		{ToolPattern: "get_rsvp_analytics", AllowedRoles: ownerRoles, Description: "Only event owners and admins can view RSVP analytics"},
		{ToolPattern: "get_rsvp_stats", AllowedRoles: adminOnly, Description: "Only admins can view global RSVP statistics"},

		// Photo submission is open; curation is restricted.
		{ToolPattern: "submit_photo*", AllowedRoles: allRoles, Description: "All users can submit photos"},
		{ToolPattern: "get_photo*", AllowedRoles: allRoles, Description: "All users can view photos"},
		{ToolPattern: "activate_photo*", AllowedRoles: ownerRoles, Description: "Only event owners can activate photo collection"},
		{ToolPattern: "deactivate_photo*", AllowedRoles: ownerRoles, Description: "Only event owners can deactivate photo collection"},
		{ToolPattern: "update_photo*", AllowedRoles: ownerRoles, Description: "Only event owners can update photo settings"},

		// Canvas placement is open; canvas administration is restricted.
		{ToolPattern: "place_element", AllowedRoles: allRoles, Description: "All users can place canvas elements"},
		{ToolPattern: "get_canvas*", AllowedRoles: allRoles, Description: "All users can view the canvas"},
		{ToolPattern: "create_canvas", AllowedRoles: ownerRoles, Description: "Only event owners and admins can create a canvas"},

		// Guild lifecycle.
		{ToolPattern: "register_guild", AllowedRoles: ownerRoles, Description: "Only event owners and admins can register guilds"},
		{ToolPattern: "deregister_guild", AllowedRoles: ownerRoles, Description: "Only event owners and admins can deregister guilds"},
		{ToolPattern: "get_guild*", AllowedRoles: allRoles, Description: "All users can read guild registration info"},

		// Policy mutation is itself a set of tools, restricted to admins.
		{ToolPattern: "add_policy", AllowedRoles: adminOnly, Description: "Only admins can add policy rules"},
		{ToolPattern: "remove_policy", AllowedRoles: adminOnly, Description: "Only admins can remove policy rules"},
		{ToolPattern: "assign_role", AllowedRoles: adminOnly, Description: "Only admins can assign roles"},

		// Admin catch-all. Keep last.
		{ToolPattern: "*", AllowedRoles: adminOnly, Description: "Admins have full access"},
	}
}
