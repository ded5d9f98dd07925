package domain

import (
	"encoding/json"
	"time"
)

// Outbox row states.
const (
	OutboxPending    = "pending"
	OutboxDispatched = "dispatched"
	OutboxDead       = "dead"
)

// OutboxEvent is a durably queued copy of a published event awaiting push
// delivery to an external receiver. The bus itself never persists events;
// the outbox subscriber does, and the relay loop drains the table.
type OutboxEvent struct {
	ID            int64
	EventID       string
	TenantID      string
	Topic         string
	PayloadJSON   json.RawMessage
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}
