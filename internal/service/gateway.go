package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	plotel "github.com/planloop/planloop/internal/adapter/otel"
	"github.com/planloop/planloop/internal/domain/rbac"
	"github.com/planloop/planloop/internal/port/tools"
)

// Gateway error codes surfaced to callers.
const (
	ErrCodeDenied      = "permission_denied"
	ErrCodeUnknownTool = "unknown_tool"
	ErrCodeBadRequest  = "bad_request"
	ErrCodeToolFailed  = "tool_failed"
)

// ToolError is a structured failure from the gateway. Code is stable
// and machine-readable; Message is for humans.
type ToolError struct {
	Code    string `json:"code"`
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Tool, e.Message, e.Code)
}

// GatewayService routes tool calls to their owning service after an
// RBAC check. It also implements the built-in policy management tools,
// which are admin-only.
type GatewayService struct {
	rbac    *RBACService
	logger  *slog.Logger
	metrics *plotel.Metrics

	mu       sync.RWMutex
	services map[string]tools.Service // tool name -> service
	roles    map[string]rbac.Role     // user id -> assigned role
}

// NewGatewayService creates a gateway over the given tool services.
// Duplicate tool names across services are a wiring bug and panic.
func NewGatewayService(rbacSvc *RBACService, logger *slog.Logger, svcs ...tools.Service) *GatewayService {
	g := &GatewayService{
		rbac:     rbacSvc,
		logger:   logger,
		services: make(map[string]tools.Service),
		roles:    make(map[string]rbac.Role),
	}
	for _, svc := range svcs {
		for _, tool := range svc.Tools() {
			if _, exists := g.services[tool]; exists {
				panic(fmt.Sprintf("gateway: duplicate tool registration for %q", tool))
			}
			g.services[tool] = svc
		}
	}
	return g
}

// SetMetrics attaches metric instruments. Must be called before the
// gateway serves traffic.
func (g *GatewayService) SetMetrics(m *plotel.Metrics) {
	g.metrics = m
}

// builtin tools handled by the gateway itself.
const (
	toolAddPolicy    = "add_policy"
	toolRemovePolicy = "remove_policy"
	toolListPolicies = "list_policies"
	toolAssignRole   = "assign_role"
)

func isBuiltin(tool string) bool {
	switch tool {
	case toolAddPolicy, toolRemovePolicy, toolListPolicies, toolAssignRole:
		return true
	}
	return false
}

// CallTool resolves the caller's auth context, enforces RBAC, and
// dispatches to the owning service. All failures are *ToolError.
func (g *GatewayService) CallTool(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}
	ac := g.resolveCaller(args)

	verdict := g.rbac.Check(ac, tool)
	if !verdict.Allowed {
		if g.metrics != nil {
			g.metrics.RBACDenials.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tool", tool),
				attribute.String("role", string(ac.Role)),
			))
		}
		return nil, &ToolError{Code: ErrCodeDenied, Tool: tool, Message: verdict.Reason}
	}
	if g.metrics != nil {
		g.metrics.ToolCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
	}

	if isBuiltin(tool) {
		return g.callBuiltin(tool, args)
	}

	g.mu.RLock()
	svc, ok := g.services[tool]
	g.mu.RUnlock()
	if !ok {
		return nil, &ToolError{Code: ErrCodeUnknownTool, Tool: tool, Message: "no service handles this tool"}
	}

	result, err := svc.Call(ctx, tool, args)
	if err != nil {
		if g.metrics != nil {
			g.metrics.ToolCallFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
		}
		g.logger.Warn("tool call failed", "tool", tool, "service", svc.Name(), "error", err)
		return nil, &ToolError{Code: ErrCodeToolFailed, Tool: tool, Message: err.Error()}
	}
	return result, nil
}

// resolveCaller resolves the auth context, consulting the stored role
// assignments when the arguments carried a user id but no role. An
// explicit role in the arguments always wins over an assignment.
func (g *GatewayService) resolveCaller(args map[string]any) rbac.AuthContext {
	ac := ResolveAuthContext(args)
	if !ac.RoleDefaulted {
		return ac
	}
	g.mu.RLock()
	role, ok := g.roles[ac.UserID]
	g.mu.RUnlock()
	if ok {
		ac.Role = role
		ac.RoleDefaulted = false
	}
	return ac
}

// ListTools returns all dispatchable tool names, builtins included,
// sorted alphabetically.
func (g *GatewayService) ListTools() []string {
	g.mu.RLock()
	names := make([]string, 0, len(g.services)+4)
	for name := range g.services {
		names = append(names, name)
	}
	g.mu.RUnlock()
	names = append(names, toolAddPolicy, toolRemovePolicy, toolListPolicies, toolAssignRole)
	sort.Strings(names)
	return names
}

func (g *GatewayService) callBuiltin(tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case toolAddPolicy:
		pattern, _ := args["tool_pattern"].(string)
		rawRoles, _ := args["allowed_roles"].([]any)
		desc, _ := args["description"].(string)
		var roles []rbac.Role
		for _, r := range rawRoles {
			s, _ := r.(string)
			role, err := rbac.ParseRole(s)
			if err != nil {
				return nil, &ToolError{Code: ErrCodeBadRequest, Tool: tool, Message: err.Error()}
			}
			roles = append(roles, role)
		}
		rule := rbac.Rule{ToolPattern: pattern, AllowedRoles: roles, Description: desc}
		if err := g.rbac.AddRule(rule); err != nil {
			return nil, &ToolError{Code: ErrCodeBadRequest, Tool: tool, Message: err.Error()}
		}
		return map[string]any{"success": true, "pattern": pattern}, nil

	case toolRemovePolicy:
		pattern, _ := args["tool_pattern"].(string)
		if err := g.rbac.RemoveRule(pattern); err != nil {
			return nil, &ToolError{Code: ErrCodeBadRequest, Tool: tool, Message: err.Error()}
		}
		return map[string]any{"success": true, "pattern": pattern}, nil

	case toolListPolicies:
		rules := g.rbac.Rules()
		out := make([]map[string]any, 0, len(rules))
		for _, r := range rules {
			roles := make([]string, 0, len(r.AllowedRoles))
			for _, role := range r.AllowedRoles {
				roles = append(roles, string(role))
			}
			out = append(out, map[string]any{
				"tool_pattern":  r.ToolPattern,
				"allowed_roles": roles,
				"description":   r.Description,
			})
		}
		return map[string]any{"policies": out}, nil

	case toolAssignRole:
		uid, _ := args["target_user_id"].(string)
		roleStr, _ := args["target_role"].(string)
		if uid == "" {
			return nil, &ToolError{Code: ErrCodeBadRequest, Tool: tool, Message: "target_user_id is required"}
		}
		role, err := rbac.ParseRole(roleStr)
		if err != nil {
			return nil, &ToolError{Code: ErrCodeBadRequest, Tool: tool, Message: err.Error()}
		}
		g.mu.Lock()
		g.roles[uid] = role
		g.mu.Unlock()
		g.logger.Info("role assigned", "user_id", uid, "role", string(role))
		return map[string]any{"success": true, "user_id": uid, "role": string(role)}, nil
	}
	return nil, &ToolError{Code: ErrCodeUnknownTool, Tool: tool, Message: "not a builtin"}
}
