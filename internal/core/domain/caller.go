package domain

import "errors"

// CallerType classifies the origin of an authenticated identity.
type CallerType string

const (
	CallerHuman   CallerType = "human"
	CallerService CallerType = "service"
	CallerSystem  CallerType = "system"
)

func (t CallerType) Valid() bool {
	switch t {
	case CallerHuman, CallerService, CallerSystem:
		return true
	}
	return false
}

// Caller is the already-authenticated identity invoking an action. It is
// produced at the authentication boundary and passed read-only through the
// dispatch pipeline; the core never inspects credentials.
type Caller struct {
	UserID   string
	TenantID string
	Roles    []string
	Type     CallerType
}

func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c Caller) Validate() error {
	if c.UserID == "" {
		return errors.New("caller user id must not be empty")
	}
	if err := ValidateKey(c.TenantID); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return errors.New("caller type must be human, service or system")
	}
	return nil
}
