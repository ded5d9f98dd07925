package usecase

import (
	"context"

	"github.com/atviroplatforma/appcore/internal/core/domain"
	"github.com/atviroplatforma/appcore/internal/core/ports"
)

type AuditService struct {
	repo ports.AuditTrailRepository
}

func NewAuditService(repo ports.AuditTrailRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	if err := domain.ValidateKey(filter.TenantID); err != nil {
		return nil, err
	}
	if filter.RecordID != "" {
		if err := domain.ValidateKey(filter.RecordID); err != nil {
			return nil, err
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}

// Replay streams a tenant's audit trail in id order through applyFn,
// batching reads. Useful for rebuilding read models from recorded events.
func (s *AuditService) Replay(ctx context.Context, tenantID string, batchSize int, applyFn func(domain.AuditEvent) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	afterID := int64(0)
	for {
		events, err := s.List(ctx, domain.AuditFilter{TenantID: tenantID, AfterID: afterID, Limit: batchSize})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for _, e := range events {
			if err := applyFn(e); err != nil {
				return err
			}
			afterID = e.ID
		}
	}
}
