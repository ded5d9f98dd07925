package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atviroplatforma/appcore/internal/adapters/sqlite/gormsqlite"
	"github.com/atviroplatforma/appcore/internal/core/domain"
)

type auditEventModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID     string    `gorm:"column:event_id;not null"`
	EventType   string    `gorm:"column:event_type;not null"`
	TenantID    string    `gorm:"column:tenant_id;not null"`
	RecordID    string    `gorm:"column:record_id;not null"`
	PayloadJSON string    `gorm:"column:payload_json"`
	OccurredAt  time.Time `gorm:"column:occurred_at;not null"`
}

func (auditEventModel) TableName() string {
	return "audit_events"
}

type AuditTrailRepository struct {
	db *gormsqlite.DB
}

func NewAuditTrailRepository(db *gormsqlite.DB) *AuditTrailRepository {
	return &AuditTrailRepository{db: db}
}

func (r *AuditTrailRepository) Log(ctx context.Context, event domain.AuditEvent) error {
	model := auditEventModel{
		EventID:     event.EventID,
		EventType:   event.EventType,
		TenantID:    event.TenantID,
		RecordID:    event.RecordID,
		PayloadJSON: string(event.PayloadJSON),
		OccurredAt:  event.OccurredAt,
	}
	if model.OccurredAt.IsZero() {
		model.OccurredAt = time.Now().UTC()
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *AuditTrailRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	var models []auditEventModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&auditEventModel{}).Where("tenant_id = ?", filter.TenantID)
		if filter.EventType != "" {
			query = query.Where("event_type = ?", filter.EventType)
		}
		if filter.RecordID != "" {
			query = query.Where("record_id = ?", filter.RecordID)
		}
		if filter.AfterID > 0 {
			query = query.Where("id > ?", filter.AfterID)
		}
		return query.Order("id ASC").Limit(filter.Limit).Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	events := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		events = append(events, domain.AuditEvent{
			ID:          model.ID,
			EventID:     model.EventID,
			EventType:   model.EventType,
			TenantID:    model.TenantID,
			RecordID:    model.RecordID,
			PayloadJSON: json.RawMessage(model.PayloadJSON),
			OccurredAt:  model.OccurredAt,
		})
	}
	return events, nil
}
