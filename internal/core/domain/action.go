package domain

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownAction = errors.New("unknown action")

// ActionInput carries everything a handler may consult: the authenticated
// caller and the request payload.
type ActionInput struct {
	Caller  Caller
	Payload map[string]any
}

// ActionResult is what a handler hands back: the value returned to the
// action's caller plus the events to publish once the primary effect is
// committed.
type ActionResult struct {
	Data   any     `json:"data"`
	Events []Event `json:"events,omitempty"`
}

// ActionHandler performs the primary effect of an action. It runs only after
// the caller passed the action's permission rules.
type ActionHandler func(ctx context.Context, input ActionInput) (ActionResult, error)

// ActionDefinition is a named, permission-gated operation. Definitions are
// registered during startup and read concurrently by every dispatch, so they
// must never be mutated afterwards.
//
// An empty Permissions sequence denies the action to every caller.
type ActionDefinition struct {
	ID          string
	Permissions []PermissionRule
	Handler     ActionHandler
	SideEffects []string
}

func (a ActionDefinition) Validate() error {
	if a.ID == "" {
		return errors.New("action id must not be empty")
	}
	if a.Handler == nil {
		return fmt.Errorf("action %s has no handler", a.ID)
	}
	for i, rule := range a.Permissions {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("action %s rule %d: %w", a.ID, i, err)
		}
	}
	return nil
}

// PermissionDeniedError reports that rule evaluation rejected the caller.
// Decision distinguishes an explicit deny rule from fallthrough with no
// matching rule.
type PermissionDeniedError struct {
	Action   string
	UserID   string
	Decision Decision
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: action %s, caller %s (%s)", e.Action, e.UserID, e.Decision)
}
