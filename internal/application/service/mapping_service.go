package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/ai-reconciliation/internal/application/dispatcher"
	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
	"github.com/garyjia/ai-reconciliation/internal/domain/event"
	"github.com/garyjia/ai-reconciliation/internal/domain/matching"
)

// MappingService manages the supplier-name to ledger-name mapping store
type MappingService interface {
	List(ctx context.Context, supplierEntity string) ([]entity.StoredMapping, error)
	// Discover proposes new mappings from a run's supplier and ledger items
	Discover(ctx context.Context, runID string) ([]entity.MappingProposal, error)
	// SaveProposals persists confirmed proposals, one create each. The report
	// is always returned; the error is a *MappingSaveError when any failed.
	SaveProposals(ctx context.Context, supplierEntity string, proposals []entity.MappingProposal) (*MappingSaveReport, error)
}

type mappingServiceImpl struct {
	mappingRepo port.MappingRepository
	runRepo     port.RunRepository
	dispatcher  dispatcher.Dispatcher
	concurrency int
	logger      Logger
}

// NewMappingService creates a new MappingService. concurrency bounds the
// number of in-flight creates; <= 0 means unbounded.
func NewMappingService(
	mappingRepo port.MappingRepository,
	runRepo port.RunRepository,
	dispatcher dispatcher.Dispatcher,
	concurrency int,
	logger Logger,
) MappingService {
	return &mappingServiceImpl{
		mappingRepo: mappingRepo,
		runRepo:     runRepo,
		dispatcher:  dispatcher,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (s *mappingServiceImpl) List(ctx context.Context, supplierEntity string) ([]entity.StoredMapping, error) {
	supplierEntity = strings.TrimSpace(supplierEntity)
	if supplierEntity == "" {
		return nil, fmt.Errorf("%w: supplier is required", ErrInvalidRequest)
	}
	mappings, err := s.mappingRepo.Query(ctx, supplierEntity)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	if mappings == nil {
		mappings = []entity.StoredMapping{}
	}
	return mappings, nil
}

func (s *mappingServiceImpl) Discover(ctx context.Context, runID string) ([]entity.MappingProposal, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	stored, err := s.mappingRepo.Query(ctx, run.SupplierEntity)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}

	proposals := matching.Discover(run.SupplierItems, run.SystemItems, stored)
	if proposals == nil {
		proposals = []entity.MappingProposal{}
	}

	s.logger.Info("Mapping discovery finished",
		"run_id", runID,
		"supplier", run.SupplierEntity,
		"proposals", len(proposals),
	)
	return proposals, nil
}

func (s *mappingServiceImpl) SaveProposals(ctx context.Context, supplierEntity string, proposals []entity.MappingProposal) (*MappingSaveReport, error) {
	supplierEntity = strings.TrimSpace(supplierEntity)
	if supplierEntity == "" {
		return nil, fmt.Errorf("%w: supplier is required", ErrInvalidRequest)
	}
	if len(proposals) == 0 {
		return nil, fmt.Errorf("%w: no proposals to save", ErrInvalidRequest)
	}

	outcomes := make([]error, len(proposals))

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, p := range proposals {
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = s.saveOne(ctx, supplierEntity, p)
			return nil
		})
	}
	_ = g.Wait()

	report := &MappingSaveReport{Failed: []MappingSaveFailure{}}
	for i, err := range outcomes {
		if err == nil {
			report.Succeeded++
			continue
		}
		report.Failed = append(report.Failed, MappingSaveFailure{
			SupplierItemName: proposals[i].SupplierItem.Name,
			SystemItemName:   proposals[i].SystemItem.Name,
			Reason:           err.Error(),
		})
	}

	s.logger.Info("Mapping proposals saved",
		"supplier", supplierEntity,
		"succeeded", report.Succeeded,
		"failed", report.FailedCount(),
	)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeMappingsSaved, "", map[string]interface{}{
			event.KeySupplier:     supplierEntity,
			event.KeySucceeded:    report.Succeeded,
			event.KeyFailedCount:  report.FailedCount(),
			event.KeyFailedReason: report.FailedReasons(),
		}))
	}

	return report, report.Err()
}

func (s *mappingServiceImpl) saveOne(ctx context.Context, supplierEntity string, p entity.MappingProposal) error {
	if strings.TrimSpace(p.SupplierItem.Name) == "" || strings.TrimSpace(p.SystemItem.Name) == "" {
		return fmt.Errorf("item names must not be empty")
	}

	m := p.ToStoredMapping(supplierEntity)
	if err := s.mappingRepo.Create(ctx, &m); err != nil {
		s.logger.Error("Failed to save mapping",
			"supplier", supplierEntity,
			"supplier_item", m.SupplierItemName,
			"system_item", m.SystemItemName,
			"error", err,
		)
		return err
	}
	return nil
}
