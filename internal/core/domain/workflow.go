package domain

import (
	"errors"
	"fmt"
)

// Transition is one directed edge of a workflow graph. Absence of an edge
// means the move is illegal; a state with no outgoing edges is terminal.
type Transition struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Triggers []string `json:"triggers,omitempty"`
}

// Workflow governs one field of an entity: only the declared from/to edges
// are legal, including self-edges, which must be declared explicitly.
type Workflow struct {
	Name        string       `json:"name"`
	Field       string       `json:"field"`
	Initial     string       `json:"initial,omitempty"`
	Transitions []Transition `json:"transitions"`
}

func (w Workflow) Validate() error {
	if w.Name == "" {
		return errors.New("workflow name must not be empty")
	}
	if w.Field == "" {
		return fmt.Errorf("workflow %s: field must not be empty", w.Name)
	}
	if len(w.Transitions) == 0 {
		return fmt.Errorf("workflow %s: at least one transition is required", w.Name)
	}
	for i, t := range w.Transitions {
		if t.From == "" || t.To == "" {
			return fmt.Errorf("workflow %s transition %d: from and to must not be empty", w.Name, i)
		}
	}
	return nil
}

// Find returns the declared edge (from, to) if it exists.
func (w Workflow) Find(from, to string) (Transition, bool) {
	for _, t := range w.Transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// WorkflowViolationError reports an attempted move along an undeclared edge.
// It surfaces before anything is committed, so the caller sees no partial
// state change.
type WorkflowViolationError struct {
	Entity   string
	Workflow string
	Field    string
	From     string
	To       string
}

func (e *WorkflowViolationError) Error() string {
	return fmt.Sprintf("workflow %s on %s.%s: transition %q -> %q is not declared", e.Workflow, e.Entity, e.Field, e.From, e.To)
}
