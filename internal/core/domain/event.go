package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// WildcardEventType subscribes a handler to every published event.
const WildcardEventType = "*"

// Event is a fact published after a committed state change. The serialized
// form {type, payload, timestamp} is the wire contract consumed by delivery
// adapters; ID and TenantID ride along for bookkeeping only.
type Event struct {
	ID         string         `json:"-"`
	TenantID   string         `json:"-"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"timestamp"`
}

// NewEvent builds an event with a fresh id and the current time. The payload
// map is used as given; callers must include an "id" entry identifying the
// affected record.
func NewEvent(eventType, tenantID string, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Type:       eventType,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) Validate() error {
	if e.Type == "" {
		return errors.New("event type must not be empty")
	}
	if e.Payload == nil {
		return errors.New("event payload must not be nil")
	}
	if id, ok := e.Payload["id"].(string); !ok || id == "" {
		return errors.New("event payload must carry a non-empty id")
	}
	return nil
}

// RecordID returns the id entry of the payload, or "" when absent.
func (e Event) RecordID() string {
	id, _ := e.Payload["id"].(string)
	return id
}

// SubscriberFunc reacts to one delivered event. A returned error is logged
// at the fan-out boundary and never reaches the publisher.
type SubscriberFunc func(ctx context.Context, event Event) error

// Subscriber is a registered reaction to an exact event type or, with
// WildcardEventType, to every event. Name exists for diagnostics only.
type Subscriber struct {
	EventType string
	Name      string
	Handler   SubscriberFunc
}

func (s Subscriber) Validate() error {
	if s.EventType == "" {
		return errors.New("subscriber event type must not be empty")
	}
	if s.Name == "" {
		return errors.New("subscriber name must not be empty")
	}
	if s.Handler == nil {
		return errors.New("subscriber handler must not be nil")
	}
	return nil
}

// Matches reports whether the subscriber should receive an event of the
// given type.
func (s Subscriber) Matches(eventType string) bool {
	return s.EventType == WildcardEventType || s.EventType == eventType
}
