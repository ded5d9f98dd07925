package domain

import "fmt"

type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

type Ownership string

const (
	OwnershipAny Ownership = "any"
	OwnershipOwn Ownership = "own"
)

// PermissionRule is one row in the ordered rule sequence attached to an
// action. Rules are declared at startup and never mutated afterwards, so
// they are safe for unsynchronized concurrent reads.
type PermissionRule struct {
	CallerTypes []CallerType `json:"caller_types,omitempty"`
	Roles       []string     `json:"roles,omitempty"`
	Ownership   Ownership    `json:"ownership,omitempty"`
	Effect      Effect       `json:"effect"`
}

func (r PermissionRule) Validate() error {
	switch r.Effect {
	case EffectAllow, EffectDeny:
	default:
		return fmt.Errorf("permission rule effect must be allow or deny, got %q", r.Effect)
	}
	switch r.Ownership {
	case "", OwnershipAny, OwnershipOwn:
	default:
		return fmt.Errorf("permission rule ownership must be any or own, got %q", r.Ownership)
	}
	for _, t := range r.CallerTypes {
		if !t.Valid() {
			return fmt.Errorf("permission rule caller type %q is invalid", t)
		}
	}
	return nil
}

// Decision is the tagged outcome of evaluating a rule sequence. Keeping
// "no rule matched" distinct from an explicit deny lets callers and tests
// tell secure-by-default fallthrough apart from a declared rejection.
type Decision int

const (
	DecisionNoMatch Decision = iota
	DecisionAllow
	DecisionDeny
)

func (d Decision) Allowed() bool {
	return d == DecisionAllow
}

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "no_match"
	}
}
