package usecase

import (
	"github.com/atviroplatforma/appcore/internal/core/domain"
)

// EvaluatePermissions scans rules in declaration order and returns the
// effect of the first rule matching the caller. No rule after the first
// match is consulted. An empty sequence or a full scan without a match
// yields DecisionNoMatch, which callers must treat as deny.
func EvaluatePermissions(rules []domain.PermissionRule, caller domain.Caller) domain.Decision {
	for _, rule := range rules {
		if !ruleMatches(rule, caller) {
			continue
		}
		if rule.Effect == domain.EffectAllow {
			return domain.DecisionAllow
		}
		return domain.DecisionDeny
	}
	return domain.DecisionNoMatch
}

// ruleMatches reports whether every specified condition of the rule holds
// for the caller. Unspecified conditions are unrestricted.
func ruleMatches(rule domain.PermissionRule, caller domain.Caller) bool {
	if len(rule.CallerTypes) > 0 && !containsType(rule.CallerTypes, caller.Type) {
		return false
	}
	if len(rule.Roles) > 0 && !anyRole(rule.Roles, caller) {
		return false
	}
	// Ownership "own" is a declared extension point: per-record ownership
	// comparison needs the target record, which evaluation does not receive.
	// It is treated as satisfied here; the registry warns about such rules
	// at startup so the gap stays visible.
	return true
}

func containsType(types []domain.CallerType, t domain.CallerType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func anyRole(roles []string, caller domain.Caller) bool {
	for _, role := range roles {
		if caller.HasRole(role) {
			return true
		}
	}
	return false
}
