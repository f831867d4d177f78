package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/ai-reconciliation/internal/application/dispatcher"
	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
	"github.com/garyjia/ai-reconciliation/internal/domain/event"
	"github.com/garyjia/ai-reconciliation/internal/domain/matching"
	"github.com/garyjia/ai-reconciliation/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ReconcileRequest starts one reconciliation run
type ReconcileRequest struct {
	SupplierEntity string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Documents      []port.UploadedDocument
}

// Validate checks the request before any collaborator is called
func (r ReconcileRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.SupplierEntity) == "" {
		problems = append(problems, "supplier is required")
	}
	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		problems = append(problems, "period start and end are required")
	} else if r.PeriodEnd.Before(r.PeriodStart) {
		problems = append(problems, "period end is before period start")
	}
	if len(r.Documents) == 0 {
		problems = append(problems, "at least one document is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// ReconciliationService runs the two-stage reconciliation pipeline.
// Prepare does the deterministic work and persists an interim result;
// Classify delegates the residual once and finalizes the run.
type ReconciliationService interface {
	Prepare(ctx context.Context, req ReconcileRequest) (*entity.ReconciliationRun, error)
	// Classify finalizes an INTERIM or already claimed CLASSIFYING run. A
	// classifier failure degrades the run instead of returning an error.
	Classify(ctx context.Context, runID string) (*entity.ReconciliationRun, error)
	// Reconcile runs both stages inline
	Reconcile(ctx context.Context, req ReconcileRequest) (*entity.ReconciliationRun, error)
	// ClaimPending moves up to limit INTERIM runs to CLASSIFYING
	ClaimPending(ctx context.Context, limit int) ([]*entity.ReconciliationRun, error)
	// ReleaseInterrupted puts runs left CLASSIFYING by a previous process back to INTERIM
	ReleaseInterrupted(ctx context.Context) (int, error)
	GetRun(ctx context.Context, id string) (*entity.ReconciliationRun, error)
}

type reconciliationServiceImpl struct {
	extraction  ExtractionService
	ledger      port.LedgerClient
	mappingRepo port.MappingRepository
	runRepo     port.RunRepository
	classifier  port.Classifier
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	logger      Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	extraction ExtractionService,
	ledger port.LedgerClient,
	mappingRepo port.MappingRepository,
	runRepo port.RunRepository,
	classifier port.Classifier,
	txManager port.TransactionManager,
	dispatcher dispatcher.Dispatcher,
	logger Logger,
) ReconciliationService {
	return &reconciliationServiceImpl{
		extraction:  extraction,
		ledger:      ledger,
		mappingRepo: mappingRepo,
		runRepo:     runRepo,
		classifier:  classifier,
		txManager:   txManager,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

func (s *reconciliationServiceImpl) Prepare(ctx context.Context, req ReconcileRequest) (*entity.ReconciliationRun, error) {
	return s.prepare(ctx, req, entity.RunStatusInterim)
}

func (s *reconciliationServiceImpl) Reconcile(ctx context.Context, req ReconcileRequest) (*entity.ReconciliationRun, error) {
	// Created already claimed so the background worker leaves it alone.
	run, err := s.prepare(ctx, req, entity.RunStatusClassifying)
	if err != nil {
		return nil, err
	}
	return s.classifyRun(ctx, run)
}

func (s *reconciliationServiceImpl) prepare(ctx context.Context, req ReconcileRequest, status string) (*entity.ReconciliationRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	supplier := strings.TrimSpace(req.SupplierEntity)

	records, failures := s.extraction.ExtractAll(ctx, req.Documents)
	if len(failures) == len(req.Documents) {
		return nil, fmt.Errorf("%w: all %d documents failed: %s",
			ErrNoSupplierItems, len(failures), failures[0].Message)
	}
	supplierItems := entity.FlattenItems(records)

	ledgerRecords, err := s.ledger.Query(ctx, supplier, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		s.logger.Error("Ledger query failed", "supplier", supplier, "error", err)
		return nil, &LedgerFetchError{Supplier: supplier, Err: err}
	}
	systemItems := entity.FlattenItems(ledgerRecords)

	mappings, err := s.mappingRepo.Query(ctx, supplier)
	if err != nil {
		s.logger.Error("Mapping query failed", "supplier", supplier, "error", err)
		return nil, fmt.Errorf("query mappings: %w", err)
	}

	pre := matching.Preprocess(supplierItems, systemItems, mappings)

	run := &entity.ReconciliationRun{
		ID:                    uuid.NewString(),
		SupplierEntity:        supplier,
		PeriodStart:           req.PeriodStart,
		PeriodEnd:             req.PeriodEnd,
		Status:                status,
		Result:                matching.BuildInterim(supplierItems, pre),
		SupplierItems:         supplierItems,
		SystemItems:           systemItems,
		DeterministicItems:    pre.ComparedItems,
		ResidualSupplierItems: pre.ResidualSupplierItems,
		ResidualSystemItems:   pre.ResidualSystemItems,
		ExtractionFailures:    failures,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	s.logger.Info("Reconciliation prepared",
		"run_id", run.ID,
		"supplier", supplier,
		"supplier_items", len(supplierItems),
		"system_items", len(systemItems),
		"auto_resolved", len(pre.ComparedItems),
		"residual_supplier", len(pre.ResidualSupplierItems),
		"residual_system", len(pre.ResidualSystemItems),
	)
	s.publish(ctx, event.TypeRunInterim, run, nil)
	return run, nil
}

func (s *reconciliationServiceImpl) Classify(ctx context.Context, runID string) (*entity.ReconciliationRun, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	switch run.Status {
	case entity.RunStatusCompleted, entity.RunStatusDegraded:
		return run, nil
	case entity.RunStatusInterim:
		next, err := workflow.Next(run.Status, workflow.TriggerClaim)
		if err != nil {
			return nil, err
		}
		claimed, err := s.runRepo.UpdateStatus(ctx, run.ID, run.Status, next)
		if err != nil {
			return nil, fmt.Errorf("claim run: %w", err)
		}
		if !claimed {
			return nil, fmt.Errorf("%w: %s", ErrRunNotReady, run.ID)
		}
		run.Status = next
	}

	return s.classifyRun(ctx, run)
}

// classifyRun calls the classifier at most once for run. Persistence after
// the call ignores ctx cancellation so a timed-out classification is still
// recorded as degraded.
func (s *reconciliationServiceImpl) classifyRun(ctx context.Context, run *entity.ReconciliationRun) (*entity.ReconciliationRun, error) {
	pre := &matching.Preprocessed{
		ComparedItems:         run.DeterministicItems,
		ResidualSupplierItems: run.ResidualSupplierItems,
		ResidualSystemItems:   run.ResidualSystemItems,
	}

	var (
		delegate *entity.ReconciliationResult
		raw      string
	)
	if pre.HasResidual() {
		var err error
		raw, err = s.classifier.Classify(ctx, pre.ResidualSupplierItems, pre.ResidualSystemItems)
		if err != nil {
			return s.degrade(ctx, run, &ClassifierResponseError{
				Kind:        ErrClassifierUnavailable,
				RawResponse: raw,
				Err:         err,
			})
		}
		delegate, err = DecodeClassification(raw)
		if err != nil {
			var cre *ClassifierResponseError
			if !errors.As(err, &cre) {
				cre = &ClassifierResponseError{Kind: ErrMalformedClassifierResponse, RawResponse: raw, Err: err}
			}
			return s.degrade(ctx, run, cre)
		}
	} else {
		delegate = matching.EmptySubResult()
	}

	next, err := workflow.Next(run.Status, workflow.TriggerComplete)
	if err != nil {
		return nil, err
	}
	run.Result = matching.Merge(run.SupplierItems, pre, delegate)
	run.Status = next
	run.RawResponse = raw
	run.ErrorMessage = ""

	if err := s.runRepo.Update(context.WithoutCancel(ctx), run); err != nil {
		return nil, fmt.Errorf("update run: %w", err)
	}

	s.logger.Info("Reconciliation completed",
		"run_id", run.ID,
		"rows", len(run.Result.ComparedItems),
		"difference", run.Result.Difference,
	)
	s.publish(ctx, event.TypeRunCompleted, run, nil)
	return run, nil
}

func (s *reconciliationServiceImpl) degrade(ctx context.Context, run *entity.ReconciliationRun, cause *ClassifierResponseError) (*entity.ReconciliationRun, error) {
	next, err := workflow.Next(run.Status, workflow.TriggerDegrade)
	if err != nil {
		return nil, err
	}
	run.Status = next
	run.ErrorMessage = cause.Error()
	run.RawResponse = cause.RawResponse

	s.logger.Error("Classification failed, keeping interim result",
		"run_id", run.ID,
		"error", cause,
	)

	if err := s.runRepo.Update(context.WithoutCancel(ctx), run); err != nil {
		return nil, fmt.Errorf("update degraded run: %w", err)
	}

	s.publish(ctx, event.TypeRunDegraded, run, map[string]interface{}{
		event.KeyError: run.ErrorMessage,
	})
	return run, nil
}

func (s *reconciliationServiceImpl) ClaimPending(ctx context.Context, limit int) ([]*entity.ReconciliationRun, error) {
	var claimed []*entity.ReconciliationRun

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		runs, err := s.runRepo.ListByStatus(ctx, entity.RunStatusInterim, limit)
		if err != nil {
			return fmt.Errorf("list interim runs: %w", err)
		}
		for _, run := range runs {
			next, err := workflow.Next(run.Status, workflow.TriggerClaim)
			if err != nil {
				return err
			}
			ok, err := s.runRepo.UpdateStatus(ctx, run.ID, run.Status, next)
			if err != nil {
				return fmt.Errorf("claim run %s: %w", run.ID, err)
			}
			if ok {
				run.Status = next
				claimed = append(claimed, run)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *reconciliationServiceImpl) ReleaseInterrupted(ctx context.Context) (int, error) {
	released := 0

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		runs, err := s.runRepo.ListByStatus(ctx, entity.RunStatusClassifying, 0)
		if err != nil {
			return fmt.Errorf("list classifying runs: %w", err)
		}
		for _, run := range runs {
			next, err := workflow.Next(run.Status, workflow.TriggerRelease)
			if err != nil {
				return err
			}
			ok, err := s.runRepo.UpdateStatus(ctx, run.ID, run.Status, next)
			if err != nil {
				return fmt.Errorf("release run %s: %w", run.ID, err)
			}
			if ok {
				released++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if released > 0 {
		s.logger.Info("Released interrupted runs", "count", released)
	}
	return released, nil
}

func (s *reconciliationServiceImpl) GetRun(ctx context.Context, id string) (*entity.ReconciliationRun, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

func (s *reconciliationServiceImpl) publish(ctx context.Context, t event.Type, run *entity.ReconciliationRun, extra map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	payload := map[string]interface{}{
		event.KeySupplier: run.SupplierEntity,
		event.KeyStatus:   run.Status,
	}
	if run.Result != nil {
		payload[event.KeySummary] = run.Result.Summary
		payload[event.KeyDifference] = run.Result.Difference
		payload[event.KeyItemCount] = len(run.Result.ComparedItems)
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(t, run.ID, payload))
}
