package port

import (
	"context"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// MappingRepository is the mapping store. Query returns mappings in creation
// order so last-write-wins lookups see the newest entry last.
type MappingRepository interface {
	Query(ctx context.Context, supplierEntity string) ([]entity.StoredMapping, error)
	Create(ctx context.Context, mapping *entity.StoredMapping) error
}

// RunRepository defines persistence operations for ReconciliationRun
type RunRepository interface {
	Create(ctx context.Context, run *entity.ReconciliationRun) error
	GetByID(ctx context.Context, id string) (*entity.ReconciliationRun, error)
	Update(ctx context.Context, run *entity.ReconciliationRun) error
	// ListByStatus returns the oldest runs in status first
	ListByStatus(ctx context.Context, status string, limit int) ([]*entity.ReconciliationRun, error)
	// UpdateStatus moves a run from one status to another and reports
	// whether the row was in the expected status.
	UpdateStatus(ctx context.Context, id, from, to string) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
