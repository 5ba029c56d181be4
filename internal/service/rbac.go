package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/planloop/planloop/internal/domain/rbac"
)

// RBACService answers allow/deny questions for tool calls and manages
// the live rule set. Rule mutation is admin-only and enforced by the
// gateway before it reaches this service.
type RBACService struct {
	mu     sync.RWMutex
	rules  rbac.RuleSet
	logger *slog.Logger
}

// NewRBACService creates an RBACService seeded with the default rules.
func NewRBACService(logger *slog.Logger) *RBACService {
	return &RBACService{
		rules:  rbac.DefaultRules(),
		logger: logger,
	}
}

// Check evaluates whether ac may call the named tool and logs the
// decision as an audit record.
func (s *RBACService) Check(ac rbac.AuthContext, tool string) rbac.Verdict {
	s.mu.RLock()
	v := s.rules.Check(tool, ac.Role)
	s.mu.RUnlock()

	s.logger.Info("rbac decision",
		"user_id", ac.UserID,
		"role", string(ac.Role),
		"tool", tool,
		"allowed", v.Allowed,
		"pattern", v.Pattern,
		"reason", v.Reason,
	)
	return v
}

// AddRule appends a rule before the final catch-all so it takes effect
// under first-match evaluation.
func (s *RBACService) AddRule(rule rbac.Rule) error {
	if rule.ToolPattern == "" {
		return fmt.Errorf("rbac: rule pattern is required")
	}
	if len(rule.AllowedRoles) == 0 {
		return fmt.Errorf("rbac: rule needs at least one role")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.rules)
	if n > 0 && s.rules[n-1].ToolPattern == "*" {
		s.rules = append(s.rules[:n-1], rule, s.rules[n-1])
	} else {
		s.rules = append(s.rules, rule)
	}
	s.logger.Info("rbac rule added", "pattern", rule.ToolPattern, "roles", rule.AllowedRoles)
	return nil
}

// RemoveRule deletes the first rule whose pattern matches exactly.
func (s *RBACService) RemoveRule(pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rules {
		if r.ToolPattern == pattern {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			s.logger.Info("rbac rule removed", "pattern", pattern)
			return nil
		}
	}
	return fmt.Errorf("rbac: no rule with pattern %q", pattern)
}

// Rules returns a copy of the current rule set in evaluation order.
func (s *RBACService) Rules() rbac.RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(rbac.RuleSet, len(s.rules))
	copy(out, s.rules)
	return out
}

// AllowedPatterns returns the patterns the given role may call.
func (s *RBACService) AllowedPatterns(role rbac.Role) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.AllowedPatterns(role)
}
