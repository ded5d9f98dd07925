package domain

import (
	"encoding/json"
	"time"
)

// AuditEvent is one row of the dispatch audit trail, recorded by the audit
// subscriber for every published event.
type AuditEvent struct {
	ID          int64           `json:"id"`
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	TenantID    string          `json:"tenant_id"`
	RecordID    string          `json:"record_id"`
	PayloadJSON json.RawMessage `json:"payload_json,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type AuditFilter struct {
	TenantID  string
	EventType string
	RecordID  string
	AfterID   int64
	Limit     int
}
