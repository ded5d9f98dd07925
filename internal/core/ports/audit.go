package ports

import (
	"context"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

type AuditTrailRepository interface {
	Log(ctx context.Context, event domain.AuditEvent) error
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error)
}
