package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

// LogPublisher is the default relay target when no webhook is configured:
// it only logs what would have been delivered.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, event domain.Event) error {
	p.logger.Info().
		Str("topic", topic).
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("tenant", event.TenantID).
		Msg("outbox relay publish")
	return nil
}
