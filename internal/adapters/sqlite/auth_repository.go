package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atviroplatforma/appcore/internal/adapters/sqlite/gormsqlite"
	"github.com/atviroplatforma/appcore/internal/core/domain"
)

type apiKeyModel struct {
	TokenHash  string    `gorm:"column:token_hash;primaryKey"`
	TenantID   string    `gorm:"column:tenant_id;not null"`
	UserID     string    `gorm:"column:user_id;not null"`
	Name       string    `gorm:"column:name;not null"`
	RolesJSON  string    `gorm:"column:roles_json;not null"`
	CallerType string    `gorm:"column:caller_type;not null"`
	Active     bool      `gorm:"column:active;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (apiKeyModel) TableName() string {
	return "api_keys"
}

type APIKeyRepository struct {
	db *gormsqlite.DB
}

func NewAPIKeyRepository(db *gormsqlite.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) FindByTokenHash(ctx context.Context, tokenHash string) (domain.APIKey, error) {
	var model apiKeyModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("token_hash = ?", tokenHash).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.APIKey{}, domain.ErrNotFound
		}
		return domain.APIKey{}, fmt.Errorf("find api key: %w", err)
	}

	var roles []string
	if model.RolesJSON != "" {
		if err := json.Unmarshal([]byte(model.RolesJSON), &roles); err != nil {
			return domain.APIKey{}, fmt.Errorf("decode api key roles: %w", err)
		}
	}

	return domain.APIKey{
		TokenHash:  model.TokenHash,
		TenantID:   model.TenantID,
		UserID:     model.UserID,
		Name:       model.Name,
		Roles:      roles,
		CallerType: domain.CallerType(model.CallerType),
		Active:     model.Active,
		CreatedAt:  model.CreatedAt,
	}, nil
}

func (r *APIKeyRepository) Upsert(ctx context.Context, key domain.APIKey) error {
	rolesJSON, err := json.Marshal(key.Roles)
	if err != nil {
		return fmt.Errorf("encode api key roles: %w", err)
	}

	model := apiKeyModel{
		TokenHash:  key.TokenHash,
		TenantID:   key.TenantID,
		UserID:     key.UserID,
		Name:       key.Name,
		RolesJSON:  string(rolesJSON),
		CallerType: string(key.CallerType),
		Active:     key.Active,
		CreatedAt:  key.CreatedAt,
	}

	err = r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "user_id", "name", "roles_json", "caller_type", "active"}),
		}).Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("upsert api key: %w", err)
	}
	return nil
}
