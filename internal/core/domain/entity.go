package domain

import (
	"encoding/json"
	"fmt"
)

// Entity operation names the platform generates actions for.
const (
	OpCreate = "create"
	OpGet    = "get"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
)

var EntityOps = []string{OpCreate, OpGet, OpUpdate, OpDelete, OpList}

// EntityDefinition declares one business entity as data. The generic CRUD
// machinery turns a definition into registered actions, permission
// enforcement and workflow-governed field transitions.
//
// An operation with no permission rule list is denied to every caller.
type EntityDefinition struct {
	Name        string                      `json:"name"`
	Schema      json.RawMessage             `json:"schema,omitempty"`
	Permissions map[string][]PermissionRule `json:"permissions,omitempty"`
	Workflows   []Workflow                  `json:"workflows,omitempty"`
}

func (e EntityDefinition) Validate() error {
	if err := ValidateName(e.Name); err != nil {
		return fmt.Errorf("entity name %q: %w", e.Name, err)
	}
	if len(e.Schema) > 0 && !json.Valid(e.Schema) {
		return fmt.Errorf("entity %s: schema must be valid json", e.Name)
	}
	for op, rules := range e.Permissions {
		if !validOp(op) {
			return fmt.Errorf("entity %s: unknown operation %q in permissions", e.Name, op)
		}
		for i, rule := range rules {
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("entity %s %s rule %d: %w", e.Name, op, i, err)
			}
		}
	}
	seenFields := make(map[string]string, len(e.Workflows))
	for _, w := range e.Workflows {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("entity %s: %w", e.Name, err)
		}
		if prev, ok := seenFields[w.Field]; ok {
			return fmt.Errorf("entity %s: workflows %s and %s both govern field %s", e.Name, prev, w.Name, w.Field)
		}
		seenFields[w.Field] = w.Name
	}
	return nil
}

// ActionID returns the registered action identifier for an operation,
// e.g. "task.update".
func (e EntityDefinition) ActionID(op string) string {
	return e.Name + "." + op
}

// Rules returns the declared permission rules for an operation. A missing
// entry yields nil, which the evaluator treats as unconditional deny.
func (e EntityDefinition) Rules(op string) []PermissionRule {
	return e.Permissions[op]
}

func validOp(op string) bool {
	for _, known := range EntityOps {
		if op == known {
			return true
		}
	}
	return false
}
