// Package rbac defines the role-based access control domain model for the
// tool gateway. A RuleSet maps tool-name patterns to the roles allowed to
// call them; evaluation is first-match-wins and deny-by-default.
package rbac

import (
	"fmt"
	"path"
	"strings"
)

// Role identifies a caller's access level.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEventOwner Role = "event_owner"
	RoleUser       Role = "user"
)

// ParseRole converts a string to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(s)) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleEventOwner:
		return RoleEventOwner, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// AuthContext is the per-request caller identity. It is constructed from
// request parameters and never persisted; the rule table stays canonical
// for authorization decisions.
type AuthContext struct {
	UserID           string         `json:"user_id"`
	Role             Role           `json:"role"`
	EventPermissions []string       `json:"event_permissions,omitempty"` // event IDs the caller owns
	Metadata         map[string]any `json:"metadata,omitempty"`

	// RoleDefaulted is set when no role argument accompanied the user id
	// and Role fell back to USER. A defaulted role may be overridden by
	// a stored role assignment.
	RoleDefaulted bool `json:"-"`
}

// Anonymous returns the fail-safe default context: an anonymous USER
// with no event permissions.
func Anonymous() AuthContext {
	return AuthContext{UserID: "anonymous", Role: RoleUser, RoleDefaulted: true}
}

// Rule maps a glob-style tool-name pattern to the roles allowed to call
// matching tools. Patterns support '*' via path.Match and are matched
// case-insensitively.
type Rule struct {
	ToolPattern  string `json:"tool_pattern" yaml:"tool_pattern"`
	AllowedRoles []Role `json:"allowed_roles" yaml:"allowed_roles"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Allows reports whether the rule grants access to the given role.
func (r *Rule) Allows(role Role) bool {
	for _, allowed := range r.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// RuleSet is an ordered list of rules. Order matters: the first rule whose
// pattern matches the tool name decides the outcome.
type RuleSet []Rule

// Verdict captures the full context of a permission check, including which
// rule matched and why the decision was made.
type Verdict struct {
	Allowed   bool   `json:"allowed"`
	RuleIndex int    `json:"rule_index"` // -1 if no rule matched (default deny)
	Pattern   string `json:"pattern"`    // pattern of the matching rule
	Reason    string `json:"reason"`
}

// Check evaluates a tool name against the rule set for the given role.
// The first rule whose pattern matches decides; no match denies. A pattern
// engine error on the matching attempt also denies (fail-closed).
func (rs RuleSet) Check(toolName string, role Role) Verdict {
	name := strings.ToLower(toolName)
	for i := range rs {
		rule := &rs[i]
		matched, err := path.Match(strings.ToLower(rule.ToolPattern), name)
		if err != nil {
			return Verdict{
				Allowed:   false,
				RuleIndex: i,
				Pattern:   rule.ToolPattern,
				Reason:    fmt.Sprintf("malformed pattern %q; deny", rule.ToolPattern),
			}
		}
		if !matched {
			continue
		}
		if rule.Allows(role) {
			return Verdict{
				Allowed:   true,
				RuleIndex: i,
				Pattern:   rule.ToolPattern,
				Reason:    fmt.Sprintf("matched rule[%d] %q for role %q", i, rule.ToolPattern, role),
			}
		}
		return Verdict{
			Allowed:   false,
			RuleIndex: i,
			Pattern:   rule.ToolPattern,
			Reason:    fmt.Sprintf("matched rule[%d] %q but role %q not allowed", i, rule.ToolPattern, role),
		}
	}
	return Verdict{
		Allowed:   false,
		RuleIndex: -1,
		Reason:    "no matching rule; deny by default",
	}
}

// AllowedPatterns returns the patterns of every rule that grants the role.
func (rs RuleSet) AllowedPatterns(role Role) []string {
	var patterns []string
	for i := range rs {
		if rs[i].Allows(role) {
			patterns = append(patterns, rs[i].ToolPattern)
		}
	}
	return patterns
}
