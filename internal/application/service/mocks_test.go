package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type mockExtractor struct {
	extractFunc func(ctx context.Context, doc port.UploadedDocument) ([]entity.DocumentRecord, error)
}

func (m *mockExtractor) Extract(ctx context.Context, doc port.UploadedDocument) ([]entity.DocumentRecord, error) {
	return m.extractFunc(ctx, doc)
}

type mockLedger struct {
	records []entity.DocumentRecord
	err     error
	calls   int
}

func (m *mockLedger) Query(ctx context.Context, supplierEntity string, start, end time.Time) ([]entity.DocumentRecord, error) {
	m.calls++
	return m.records, m.err
}

type mockClassifier struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	supplier []entity.LineItem
	system   []entity.LineItem
}

func (m *mockClassifier) Classify(ctx context.Context, supplierResidual, systemResidual []entity.LineItem) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.supplier = supplierResidual
	m.system = systemResidual
	return m.response, m.err
}

type mockMappingRepo struct {
	mu         sync.Mutex
	mappings   []entity.StoredMapping
	queryErr   error
	createFunc func(m *entity.StoredMapping) error
}

func (m *mockMappingRepo) Query(ctx context.Context, supplierEntity string) ([]entity.StoredMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []entity.StoredMapping
	for _, sm := range m.mappings {
		if sm.SupplierEntityName == supplierEntity {
			out = append(out, sm)
		}
	}
	return out, nil
}

func (m *mockMappingRepo) Create(ctx context.Context, sm *entity.StoredMapping) error {
	if m.createFunc != nil {
		if err := m.createFunc(sm); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sm.ID = int64(len(m.mappings) + 1)
	m.mappings = append(m.mappings, *sm)
	return nil
}

// memRunRepo is an in-memory RunRepository
type memRunRepo struct {
	mu        sync.Mutex
	runs      map[string]entity.ReconciliationRun
	updateErr error
	updates   int
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: map[string]entity.ReconciliationRun{}}
}

func (r *memRunRepo) Create(ctx context.Context, run *entity.ReconciliationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	r.runs[run.ID] = *run
	return nil
}

func (r *memRunRepo) GetByID(ctx context.Context, id string) (*entity.ReconciliationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (r *memRunRepo) Update(ctx context.Context, run *entity.ReconciliationRun) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.runs[run.ID]; !ok {
		return errors.New("no such run")
	}
	run.UpdatedAt = time.Now()
	r.runs[run.ID] = *run
	return nil
}

func (r *memRunRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.ReconciliationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ReconciliationRun
	for _, run := range r.runs {
		if run.Status == status {
			run := run
			out = append(out, &run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRunRepo) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok || run.Status != from {
		return false, nil
	}
	run.Status = to
	r.runs[id] = run
	return true, nil
}

func (r *memRunRepo) status(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id].Status
}

type passthroughTx struct{ calls int }

func (p *passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}
