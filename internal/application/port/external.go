package port

import (
	"context"
	"time"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// UploadedDocument is one supplier document submitted for reconciliation
type UploadedDocument struct {
	Name        string
	ContentType string
	Data        []byte
}

// DocumentExtractor turns one uploaded document into zero or more records.
// An error is attributable to that document only.
type DocumentExtractor interface {
	Extract(ctx context.Context, doc UploadedDocument) ([]entity.DocumentRecord, error)
}

// LedgerClient queries the internal ledger for one supplier and date window
type LedgerClient interface {
	Query(ctx context.Context, supplierEntity string, start, end time.Time) ([]entity.DocumentRecord, error)
}

// Classifier sends the unresolved residual to the external reviewer and
// returns its untouched text response.
type Classifier interface {
	Classify(ctx context.Context, supplierResidual, systemResidual []entity.LineItem) (string, error)
}

// Notifier sends a human-readable message to the reviewer channel
type Notifier interface {
	SendText(ctx context.Context, text string) error
}

// ReportWriter renders a run as a downloadable workbook
type ReportWriter interface {
	Write(run *entity.ReconciliationRun) ([]byte, error)
}
