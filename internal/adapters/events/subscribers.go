package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/atviroplatforma/appcore/internal/core/domain"
	"github.com/atviroplatforma/appcore/internal/core/ports"
)

// NewLogSubscriber returns a wildcard subscriber writing one structured log
// line per published event.
func NewLogSubscriber(logger zerolog.Logger) domain.Subscriber {
	return domain.Subscriber{
		EventType: domain.WildcardEventType,
		Name:      "event-log",
		Handler: func(_ context.Context, event domain.Event) error {
			logger.Info().
				Str("event_id", event.ID).
				Str("event_type", event.Type).
				Str("tenant", event.TenantID).
				Str("record_id", event.RecordID()).
				Msg("event published")
			return nil
		},
	}
}

// NewAuditSubscriber returns a wildcard subscriber appending every published
// event to the audit trail.
func NewAuditSubscriber(repo ports.AuditTrailRepository) domain.Subscriber {
	return domain.Subscriber{
		EventType: domain.WildcardEventType,
		Name:      "audit-trail",
		Handler: func(ctx context.Context, event domain.Event) error {
			payload, err := json.Marshal(event.Payload)
			if err != nil {
				return fmt.Errorf("marshal event payload: %w", err)
			}
			return repo.Log(ctx, domain.AuditEvent{
				EventID:     event.ID,
				EventType:   event.Type,
				TenantID:    event.TenantID,
				RecordID:    event.RecordID(),
				PayloadJSON: payload,
				OccurredAt:  event.OccurredAt,
			})
		},
	}
}

// NewOutboxSubscriber returns a wildcard subscriber queueing every published
// event for push delivery by the outbox relay.
func NewOutboxSubscriber(repo ports.OutboxRepository) domain.Subscriber {
	return domain.Subscriber{
		EventType: domain.WildcardEventType,
		Name:      "outbox",
		Handler: func(ctx context.Context, event domain.Event) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			return repo.Enqueue(ctx, domain.OutboxEvent{
				EventID:     event.ID,
				TenantID:    event.TenantID,
				Topic:       Topic(event),
				PayloadJSON: payload,
				Status:      domain.OutboxPending,
				CreatedAt:   event.OccurredAt,
			})
		},
	}
}

// Topic names the delivery channel for an event, e.g.
// "events.tenant-a.task.created".
func Topic(event domain.Event) string {
	return "events." + event.TenantID + "." + event.Type
}
