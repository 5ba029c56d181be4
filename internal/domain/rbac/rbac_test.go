package rbac_test

import (
	"testing"

	"github.com/planloop/planloop/internal/domain/rbac"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    rbac.Role
		wantErr bool
	}{
		{"admin", rbac.RoleAdmin, false},
		{"ADMIN", rbac.RoleAdmin, false},
		{"event_owner", rbac.RoleEventOwner, false},
		{"user", rbac.RoleUser, false},
		{"superuser", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := rbac.ParseRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRuleSetCheck_FirstMatchWins(t *testing.T) {
	rs := rbac.RuleSet{
		{ToolPattern: "get_*", AllowedRoles: []rbac.Role{rbac.RoleUser}},
		{ToolPattern: "*", AllowedRoles: []rbac.Role{rbac.RoleAdmin}},
	}

	v := rs.Check("get_event", rbac.RoleUser)
	if !v.Allowed {
		t.Errorf("get_event for user: Allowed = false, want true (%s)", v.Reason)
	}
	if v.RuleIndex != 0 {
		t.Errorf("RuleIndex = %d, want 0", v.RuleIndex)
	}

	// The first matching rule decides even when a later rule would grant.
	v = rs.Check("get_event", rbac.RoleAdmin)
	if v.Allowed {
		t.Error("get_event for admin against user-only first rule: Allowed = true, want false")
	}
	if v.RuleIndex != 0 {
		t.Errorf("RuleIndex = %d, want 0 (first match decides)", v.RuleIndex)
	}
}

func TestRuleSetCheck_CaseInsensitive(t *testing.T) {
	rs := rbac.RuleSet{
		{ToolPattern: "Create_Event", AllowedRoles: []rbac.Role{rbac.RoleEventOwner}},
	}

	if v := rs.Check("CREATE_EVENT", rbac.RoleEventOwner); !v.Allowed {
		t.Errorf("case-insensitive match failed: %s", v.Reason)
	}
}

func TestRuleSetCheck_NoMatchDenies(t *testing.T) {
	rs := rbac.RuleSet{
		{ToolPattern: "get_event", AllowedRoles: []rbac.Role{rbac.RoleUser}},
	}

	v := rs.Check("drop_tables", rbac.RoleAdmin)
	if v.Allowed {
		t.Error("unmatched tool: Allowed = true, want false")
	}
	if v.RuleIndex != -1 {
		t.Errorf("RuleIndex = %d, want -1", v.RuleIndex)
	}
}

func TestRuleSetCheck_MalformedPatternDenies(t *testing.T) {
	rs := rbac.RuleSet{
		{ToolPattern: "[invalid", AllowedRoles: []rbac.Role{rbac.RoleAdmin}},
	}

	if v := rs.Check("anything", rbac.RoleAdmin); v.Allowed {
		t.Error("malformed pattern must fail closed")
	}
}

func TestDefaultRules_AdminPassesEverything(t *testing.T) {
	rs := rbac.DefaultRules()

	tools := []string{
		"get_event", "list_all_events", "search_events",
		"create_event", "update_event", "delete_event",
		"process_rsvp", "get_rsvp_stats", "get_event_rsvps",
		"submit_photo_dm", "activate_photo_collection",
		"place_element", "create_canvas",
		"register_guild", "deregister_guild",
		"add_policy", "remove_policy", "assign_role",
		"some_future_tool",
	}

	for _, tool := range tools {
		if v := rs.Check(tool, rbac.RoleAdmin); !v.Allowed {
			t.Errorf("admin denied %q: %s", tool, v.Reason)
		}
	}
}

func TestDefaultRules_WriteToolsDenyUser(t *testing.T) {
	rs := rbac.DefaultRules()

	denied := []string{
		"create_event", "update_event", "delete_event",
		"activate_photo_collection", "deactivate_photo_collection",
		"register_guild", "deregister_guild",
		"get_rsvp_stats", "get_event_rsvps",
		"add_policy", "remove_policy", "assign_role",
	}
	for _, tool := range denied {
		if v := rs.Check(tool, rbac.RoleUser); v.Allowed {
			t.Errorf("user allowed %q, want denied", tool)
		}
	}

	allowed := []string{
		"get_event", "list_all_events", "search_events",
		"process_rsvp", "create_rsvp", "get_user_rsvp_for_event",
		"submit_photo_dm", "get_photo_status",
		"place_element", "get_canvas_image",
	}
	for _, tool := range allowed {
		if v := rs.Check(tool, rbac.RoleUser); !v.Allowed {
			t.Errorf("user denied %q: %s", tool, v.Reason)
		}
	}
}

func TestDefaultRules_EventOwnerWrites(t *testing.T) {
	rs := rbac.DefaultRules()

	for _, tool := range []string{"create_event", "update_event", "delete_event", "register_guild", "get_rsvp_analytics"} {
		if v := rs.Check(tool, rbac.RoleEventOwner); !v.Allowed {
			t.Errorf("event_owner denied %q: %s", tool, v.Reason)
		}
	}

	// Global stats and policy mutation stay admin-only.
	for _, tool := range []string{"get_rsvp_stats", "add_policy", "assign_role"} {
		if v := rs.Check(tool, rbac.RoleEventOwner); v.Allowed {
			t.Errorf("event_owner allowed %q, want denied", tool)
		}
	}
}

func TestDefaultRules_UnknownToolDeniedForNonAdmins(t *testing.T) {
	rs := rbac.DefaultRules()

	for _, role := range []rbac.Role{rbac.RoleUser, rbac.RoleEventOwner} {
		if v := rs.Check("no_such_tool", role); v.Allowed {
			t.Errorf("%s allowed unknown tool, want denied", role)
		}
	}
}

func TestAllowedPatterns(t *testing.T) {
	rs := rbac.RuleSet{
		{ToolPattern: "get_*", AllowedRoles: []rbac.Role{rbac.RoleUser, rbac.RoleAdmin}},
		{ToolPattern: "create_event", AllowedRoles: []rbac.Role{rbac.RoleAdmin}},
	}

	got := rs.AllowedPatterns(rbac.RoleUser)
	if len(got) != 1 || got[0] != "get_*" {
		t.Errorf("AllowedPatterns(user) = %v, want [get_*]", got)
	}

	if got := rs.AllowedPatterns(rbac.RoleAdmin); len(got) != 2 {
		t.Errorf("AllowedPatterns(admin) = %v, want 2 patterns", got)
	}
}
