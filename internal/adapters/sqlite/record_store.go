package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atviroplatforma/appcore/internal/adapters/sqlite/gormsqlite"
	"github.com/atviroplatforma/appcore/internal/core/domain"
)

type recordModel struct {
	TenantID  string    `gorm:"column:tenant_id;primaryKey"`
	Entity    string    `gorm:"column:entity;primaryKey"`
	ID        string    `gorm:"column:id;primaryKey"`
	Data      string    `gorm:"column:data;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (recordModel) TableName() string {
	return "entity_records"
}

// RecordStore persists entity records. Update compares the caller's
// previously observed updated_at inside the write transaction, which is what
// serializes concurrent workflow transitions on the same record.
type RecordStore struct {
	db *gormsqlite.DB
}

func NewRecordStore(db *gormsqlite.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	var result domain.Record
	err := s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var existing recordModel
		err := tx.Where("tenant_id = ? AND entity = ? AND id = ?", rec.TenantID, rec.Entity, rec.ID).
			First(&existing).Error
		switch {
		case err == nil:
			return domain.ErrAlreadyExists
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("check existing record: %w", err)
		}

		now := time.Now().UTC()
		model := recordModel{
			TenantID:  rec.TenantID,
			Entity:    rec.Entity,
			ID:        rec.ID,
			Data:      string(rec.Data),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		result = toRecord(model)
		return nil
	})
	if err != nil {
		return domain.Record{}, err
	}
	return result, nil
}

func (s *RecordStore) Get(ctx context.Context, tenantID, entity, id string) (domain.Record, error) {
	var model recordModel
	err := s.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("tenant_id = ? AND entity = ? AND id = ?", tenantID, entity, id).
			First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Record{}, domain.ErrNotFound
		}
		return domain.Record{}, fmt.Errorf("get record: %w", err)
	}
	return toRecord(model), nil
}

func (s *RecordStore) Update(ctx context.Context, rec domain.Record, expectedUpdatedAt time.Time) (domain.Record, error) {
	var result domain.Record
	err := s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var existing recordModel
		err := tx.Where("tenant_id = ? AND entity = ? AND id = ?", rec.TenantID, rec.Entity, rec.ID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load record: %w", err)
		}
		// The row moved on since the caller read it; a concurrent update
		// (possibly a workflow transition validated from the same prior
		// state) already won.
		if !existing.UpdatedAt.Equal(expectedUpdatedAt) {
			return domain.ErrConflict
		}

		now := time.Now().UTC()
		res := tx.Model(&recordModel{}).
			Where("tenant_id = ? AND entity = ? AND id = ?", rec.TenantID, rec.Entity, rec.ID).
			Updates(map[string]any{"data": string(rec.Data), "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("update record: %w", res.Error)
		}

		existing.Data = string(rec.Data)
		existing.UpdatedAt = now
		result = toRecord(existing)
		return nil
	})
	if err != nil {
		return domain.Record{}, err
	}
	return result, nil
}

func (s *RecordStore) Delete(ctx context.Context, tenantID, entity, id string) (bool, error) {
	var deleted bool
	err := s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("tenant_id = ? AND entity = ? AND id = ?", tenantID, entity, id).
			Delete(&recordModel{})
		if res.Error != nil {
			return fmt.Errorf("delete record: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *RecordStore) List(ctx context.Context, tenantID, entity string, filter domain.RecordListFilter) ([]domain.Record, error) {
	var models []recordModel
	err := s.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&recordModel{}).
			Where("tenant_id = ? AND entity = ?", tenantID, entity)
		if filter.After != "" {
			query = query.Where("id > ?", filter.After)
		}
		return query.Order("id ASC").Limit(filter.Limit).Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records := make([]domain.Record, 0, len(models))
	for _, model := range models {
		records = append(records, toRecord(model))
	}
	return records, nil
}

func toRecord(model recordModel) domain.Record {
	return domain.Record{
		TenantID:  model.TenantID,
		Entity:    model.Entity,
		ID:        model.ID,
		Data:      json.RawMessage(model.Data),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
