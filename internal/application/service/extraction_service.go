package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// ExtractionService runs document extraction across a batch of uploads
type ExtractionService interface {
	// ExtractAll extracts every document concurrently. Records keep the input
	// document order; a failing document is reported and never blocks others.
	ExtractAll(ctx context.Context, docs []port.UploadedDocument) ([]entity.DocumentRecord, []entity.ExtractionFailure)
}

type extractionServiceImpl struct {
	extractor   port.DocumentExtractor
	concurrency int
	logger      Logger
}

// NewExtractionService creates an ExtractionService. concurrency <= 0 means
// one goroutine per document.
func NewExtractionService(extractor port.DocumentExtractor, concurrency int, logger Logger) ExtractionService {
	return &extractionServiceImpl{
		extractor:   extractor,
		concurrency: concurrency,
		logger:      logger,
	}
}

type extractionOutcome struct {
	records []entity.DocumentRecord
	err     error
}

func (s *extractionServiceImpl) ExtractAll(ctx context.Context, docs []port.UploadedDocument) ([]entity.DocumentRecord, []entity.ExtractionFailure) {
	outcomes := make([]extractionOutcome, len(docs))

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			records, err := s.extractOne(ctx, doc)
			outcomes[i] = extractionOutcome{records: records, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		records  []entity.DocumentRecord
		failures []entity.ExtractionFailure
	)
	for i, out := range outcomes {
		if out.err != nil {
			s.logger.Error("Document extraction failed", "document", docs[i].Name, "error", out.err)
			failures = append(failures, entity.ExtractionFailure{
				DocumentName: docs[i].Name,
				Message:      out.err.Error(),
			})
			continue
		}
		records = append(records, out.records...)
	}

	s.logger.Info("Extraction finished",
		"documents", len(docs),
		"records", len(records),
		"failures", len(failures),
	)
	return records, failures
}

func (s *extractionServiceImpl) extractOne(ctx context.Context, doc port.UploadedDocument) (records []entity.DocumentRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrExtractionFailed, doc.Name, r)
		}
	}()

	records, err = s.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, doc.Name, err)
	}
	return records, nil
}
