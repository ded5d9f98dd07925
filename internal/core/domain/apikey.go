package domain

import "time"

// APIKey binds a token hash to the caller identity it authenticates as.
type APIKey struct {
	TokenHash  string
	TenantID   string
	UserID     string
	Name       string
	Roles      []string
	CallerType CallerType
	Active     bool
	CreatedAt  time.Time
}

// Caller resolves the identity this key authenticates.
func (k APIKey) Caller() Caller {
	return Caller{
		UserID:   k.UserID,
		TenantID: k.TenantID,
		Roles:    k.Roles,
		Type:     k.CallerType,
	}
}
