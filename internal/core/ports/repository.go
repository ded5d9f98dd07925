package ports

import (
	"context"
	"time"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

// RecordStore is the storage boundary entity handlers call out to. The core
// treats it as an opaque dependency that may fail; failures surface as
// handler failures.
//
// Update must compare against the previously observed row version
// (expectedUpdatedAt) inside its own transaction and return
// domain.ErrConflict when the row moved on, so concurrent workflow
// transitions on the same record are serialized by storage.
type RecordStore interface {
	Create(ctx context.Context, rec domain.Record) (domain.Record, error)
	Get(ctx context.Context, tenantID, entity, id string) (domain.Record, error)
	Update(ctx context.Context, rec domain.Record, expectedUpdatedAt time.Time) (domain.Record, error)
	Delete(ctx context.Context, tenantID, entity, id string) (bool, error)
	List(ctx context.Context, tenantID, entity string, filter domain.RecordListFilter) ([]domain.Record, error)
}
