package service

import (
	"github.com/planloop/planloop/internal/domain/rbac"
)

// ResolveAuthContext extracts an authentication context from a tool
// call's arguments. Lookup order:
//
//  1. an "auth_context" object in the arguments
//  2. an "auth_context" object under "metadata"
//  3. "user_id"/"user_role" fields under "metadata"
//  4. top-level "user_id"/"user_role" fields
//  5. anonymous (role "user")
//
// A user id with no role at all resolves to that user with the USER
// default, so the caller's identity survives into audit logs. An
// unparseable role at any step falls through to the next, so a
// malformed caller never gains more than the anonymous default.
func ResolveAuthContext(args map[string]any) rbac.AuthContext {
	if ac, ok := authFromObject(args["auth_context"]); ok {
		return ac
	}
	if meta, ok := args["metadata"].(map[string]any); ok {
		if ac, ok := authFromObject(meta["auth_context"]); ok {
			return ac
		}
		if ac, ok := authFromFields(meta); ok {
			return ac
		}
	}
	if ac, ok := authFromFields(args); ok {
		return ac
	}
	return rbac.Anonymous()
}

func authFromObject(v any) (rbac.AuthContext, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return rbac.AuthContext{}, false
	}
	userID, _ := obj["user_id"].(string)
	roleStr, _ := obj["role"].(string)
	if roleStr == "" {
		roleStr, _ = obj["user_role"].(string)
	}
	role, err := rbac.ParseRole(roleStr)
	if userID == "" || err != nil {
		return rbac.AuthContext{}, false
	}
	ac := rbac.AuthContext{UserID: userID, Role: role}
	if perms, ok := obj["event_permissions"].([]any); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				ac.EventPermissions = append(ac.EventPermissions, s)
			}
		}
	}
	if meta, ok := obj["metadata"].(map[string]any); ok {
		ac.Metadata = meta
	}
	return ac, true
}

func authFromFields(obj map[string]any) (rbac.AuthContext, bool) {
	userID, _ := obj["user_id"].(string)
	if userID == "" {
		return rbac.AuthContext{}, false
	}
	roleStr, _ := obj["user_role"].(string)
	if roleStr == "" {
		roleStr, _ = obj["role"].(string)
	}
	if roleStr == "" {
		return rbac.AuthContext{UserID: userID, Role: rbac.RoleUser, RoleDefaulted: true}, true
	}
	role, err := rbac.ParseRole(roleStr)
	if err != nil {
		return rbac.AuthContext{}, false
	}
	return rbac.AuthContext{UserID: userID, Role: role}, true
}
