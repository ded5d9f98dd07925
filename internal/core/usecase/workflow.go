package usecase

import (
	"github.com/atviroplatforma/appcore/internal/core/domain"
)

// ValidateTransition reports whether moving the governed field from one
// value to another follows a declared edge. from == to is legal only when a
// self-edge is declared. The matched edge is returned so its triggers can
// accompany the transition event.
func ValidateTransition(w domain.Workflow, from, to string) (domain.Transition, bool) {
	return w.Find(from, to)
}

// TransitionEvent builds the "<entity>.workflow.transitioned" event emitted
// after a validated transition is committed.
func TransitionEvent(entity, tenantID, recordID string, w domain.Workflow, tr domain.Transition) domain.Event {
	payload := map[string]any{
		"id":       recordID,
		"entity":   entity,
		"workflow": w.Name,
		"field":    w.Field,
		"from":     tr.From,
		"to":       tr.To,
	}
	if len(tr.Triggers) > 0 {
		payload["triggers"] = tr.Triggers
	}
	return domain.NewEvent(entity+".workflow.transitioned", tenantID, payload)
}
