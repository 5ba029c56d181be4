package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/planloop/planloop/internal/port/tools"
	"github.com/planloop/planloop/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeToolService implements port/tools.Service for gateway tests.
type fakeToolService struct {
	name  string
	tools []string
	calls []string
	err   error
}

func (f *fakeToolService) Name() string    { return f.name }
func (f *fakeToolService) Tools() []string { return f.tools }

func (f *fakeToolService) Call(_ context.Context, tool string, _ map[string]any) (map[string]any, error) {
	f.calls = append(f.calls, tool)
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"ok": true, "tool": tool}, nil
}

func adminArgs() map[string]any {
	return map[string]any{
		"auth_context": map[string]any{"user_id": "admin-1", "role": "admin"},
	}
}

func userArgs() map[string]any {
	return map[string]any{
		"auth_context": map[string]any{"user_id": "user-1", "role": "user"},
	}
}

func newGateway(t *testing.T, svcs ...tools.Service) *service.GatewayService {
	t.Helper()
	logger := discardLogger()
	return service.NewGatewayService(service.NewRBACService(logger), logger, svcs...)
}

func TestGatewayDispatch(t *testing.T) {
	events := &fakeToolService{name: "event_manager", tools: []string{"create_event", "get_event"}}
	gw := newGateway(t, events)

	args := adminArgs()
	args["title"] = "Picnic"
	result, err := gw.CallTool(context.Background(), "create_event", args)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if result["ok"] != true {
		t.Fatalf("result = %v", result)
	}
	if len(events.calls) != 1 || events.calls[0] != "create_event" {
		t.Fatalf("calls = %v", events.calls)
	}
}

func TestGatewayDeniesUserWrite(t *testing.T) {
	events := &fakeToolService{name: "event_manager", tools: []string{"create_event"}}
	gw := newGateway(t, events)

	_, err := gw.CallTool(context.Background(), "create_event", userArgs())
	var terr *service.ToolError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *ToolError", err)
	}
	if terr.Code != service.ErrCodeDenied {
		t.Fatalf("Code = %q, want %q", terr.Code, service.ErrCodeDenied)
	}
	if len(events.calls) != 0 {
		t.Fatal("denied call reached the tool service")
	}
}

func TestGatewayUnknownTool(t *testing.T) {
	gw := newGateway(t)

	_, err := gw.CallTool(context.Background(), "get_event", adminArgs())
	var terr *service.ToolError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *ToolError", err)
	}
	if terr.Code != service.ErrCodeUnknownTool {
		t.Fatalf("Code = %q, want %q", terr.Code, service.ErrCodeUnknownTool)
	}
}

func TestGatewayToolFailure(t *testing.T) {
	events := &fakeToolService{
		name:  "event_manager",
		tools: []string{"get_event"},
		err:   errors.New("not found"),
	}
	gw := newGateway(t, events)

	_, err := gw.CallTool(context.Background(), "get_event", userArgs())
	var terr *service.ToolError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *ToolError", err)
	}
	if terr.Code != service.ErrCodeToolFailed {
		t.Fatalf("Code = %q, want %q", terr.Code, service.ErrCodeToolFailed)
	}
}

func TestGatewayBuiltinPolicyTools(t *testing.T) {
	gw := newGateway(t)

	// USER may not touch policy tools.
	_, err := gw.CallTool(context.Background(), "add_policy", userArgs())
	var terr *service.ToolError
	if !errors.As(err, &terr) || terr.Code != service.ErrCodeDenied {
		t.Fatalf("user add_policy error = %v, want denied ToolError", err)
	}

	// ADMIN adds a grant, then a USER benefits from it.
	args := adminArgs()
	args["tool_pattern"] = "special_tool"
	args["allowed_roles"] = []any{"user"}
	if _, err := gw.CallTool(context.Background(), "add_policy", args); err != nil {
		t.Fatalf("admin add_policy error = %v", err)
	}

	// The tool is now allowed for USER; the only failure left is that
	// no service handles it.
	_, err = gw.CallTool(context.Background(), "special_tool", userArgs())
	if !errors.As(err, &terr) || terr.Code != service.ErrCodeUnknownTool {
		t.Fatalf("special_tool error = %v, want unknown_tool", err)
	}

	// list_policies reflects the added rule.
	result, err := gw.CallTool(context.Background(), "list_policies", adminArgs())
	if err != nil {
		t.Fatalf("list_policies error = %v", err)
	}
	policies, ok := result["policies"].([]map[string]any)
	if !ok {
		t.Fatalf("policies type = %T", result["policies"])
	}
	found := false
	for _, p := range policies {
		if p["tool_pattern"] == "special_tool" {
			found = true
		}
	}
	if !found {
		t.Fatal("added policy missing from list_policies")
	}

	// remove it again
	rm := adminArgs()
	rm["tool_pattern"] = "special_tool"
	if _, err := gw.CallTool(context.Background(), "remove_policy", rm); err != nil {
		t.Fatalf("remove_policy error = %v", err)
	}
	_, err = gw.CallTool(context.Background(), "special_tool", userArgs())
	if !errors.As(err, &terr) || terr.Code != service.ErrCodeDenied {
		t.Fatalf("special_tool after removal error = %v, want denied", err)
	}
}

func TestGatewayAssignRole(t *testing.T) {
	events := &fakeToolService{name: "event_manager", tools: []string{"create_event"}}
	gw := newGateway(t, events)

	// Assign event_owner to a bare user id.
	args := adminArgs()
	args["target_user_id"] = "u9"
	args["target_role"] = "event_owner"
	if _, err := gw.CallTool(context.Background(), "assign_role", args); err != nil {
		t.Fatalf("assign_role error = %v", err)
	}

	// A call carrying only the user id now resolves to the stored role.
	call := map[string]any{"user_id": "u9", "title": "Standup"}
	if _, err := gw.CallTool(context.Background(), "create_event", call); err != nil {
		t.Fatalf("create_event as assigned owner error = %v", err)
	}

	// An explicit role argument beats the stored assignment.
	demoted := map[string]any{"user_id": "u9", "user_role": "user", "title": "Standup"}
	_, err := gw.CallTool(context.Background(), "create_event", demoted)
	var terr *service.ToolError
	if !errors.As(err, &terr) || terr.Code != service.ErrCodeDenied {
		t.Fatalf("explicit user role call error = %v, want permission denied", err)
	}
}

func TestGatewayListTools(t *testing.T) {
	events := &fakeToolService{name: "event_manager", tools: []string{"create_event"}}
	gw := newGateway(t, events)

	names := gw.ListTools()
	want := map[string]bool{"create_event": false, "add_policy": false, "assign_role": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("ListTools() missing %q", n)
		}
	}
}
