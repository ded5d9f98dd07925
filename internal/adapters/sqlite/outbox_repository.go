package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atviroplatforma/appcore/internal/adapters/sqlite/gormsqlite"
	"github.com/atviroplatforma/appcore/internal/core/domain"
)

type outboxEventModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	EventID       string     `gorm:"column:event_id;not null"`
	TenantID      string     `gorm:"column:tenant_id;not null"`
	Topic         string     `gorm:"column:topic;not null"`
	PayloadJSON   string     `gorm:"column:payload_json;not null"`
	Status        string     `gorm:"column:status;not null"`
	Attempts      int        `gorm:"column:attempts;not null"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null"`
	LastError     string     `gorm:"column:last_error;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	DispatchedAt  *time.Time `gorm:"column:dispatched_at"`
}

func (outboxEventModel) TableName() string {
	return "outbox_events"
}

type OutboxRepository struct {
	db *gormsqlite.DB
}

func NewOutboxRepository(db *gormsqlite.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, event domain.OutboxEvent) error {
	model := outboxEventModel{
		EventID:       event.EventID,
		TenantID:      event.TenantID,
		Topic:         event.Topic,
		PayloadJSON:   string(event.PayloadJSON),
		Status:        event.Status,
		Attempts:      0,
		NextAttemptAt: time.Now().UTC(),
		CreatedAt:     event.CreatedAt,
	}
	if model.Status == "" {
		model.Status = domain.OutboxPending
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	var models []outboxEventModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&outboxEventModel{}).
			Where("status = ? AND next_attempt_at <= ?", domain.OutboxPending, time.Now().UTC()).
			Order("id ASC").
			Limit(limit).
			Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox events: %w", err)
	}

	events := make([]domain.OutboxEvent, 0, len(models))
	for _, model := range models {
		events = append(events, domain.OutboxEvent{
			ID:            model.ID,
			EventID:       model.EventID,
			TenantID:      model.TenantID,
			Topic:         model.Topic,
			PayloadJSON:   json.RawMessage(model.PayloadJSON),
			Status:        model.Status,
			Attempts:      model.Attempts,
			NextAttemptAt: model.NextAttemptAt,
			LastError:     model.LastError,
			CreatedAt:     model.CreatedAt,
			DispatchedAt:  model.DispatchedAt,
		})
	}
	return events, nil
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&outboxEventModel{}).
			Where("id = ?", id).
			Updates(map[string]any{"status": domain.OutboxDispatched, "dispatched_at": now}).Error
	})
	if err != nil {
		return fmt.Errorf("mark outbox event dispatched: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt string, errMsg string) error {
	parsed, err := time.Parse(time.RFC3339Nano, nextAttemptAt)
	if err != nil {
		return fmt.Errorf("parse next attempt time: %w", err)
	}
	err = r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&outboxEventModel{}).
			Where("id = ?", id).
			Updates(map[string]any{"attempts": attempts, "next_attempt_at": parsed, "last_error": errMsg}).Error
	})
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id int64, attempts int, errMsg string) error {
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&outboxEventModel{}).
			Where("id = ?", id).
			Updates(map[string]any{"status": domain.OutboxDead, "attempts": attempts, "last_error": errMsg}).Error
	})
	if err != nil {
		return fmt.Errorf("mark outbox event dead: %w", err)
	}
	return nil
}
