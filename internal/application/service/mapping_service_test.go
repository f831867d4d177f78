package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-reconciliation/internal/application/dispatcher"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
	"github.com/garyjia/ai-reconciliation/internal/domain/event"
)

func proposal(supplierName, systemName string, qty, price float64) entity.MappingProposal {
	return entity.MappingProposal{
		SupplierItem: li(supplierName, qty, price),
		SystemItem:   li(systemName, qty, price),
	}
}

func TestMappingService_Discover(t *testing.T) {
	runs := newMemRunRepo()
	require.NoError(t, runs.Create(context.Background(), &entity.ReconciliationRun{
		ID:             "run-1",
		SupplierEntity: supplier,
		Status:         entity.RunStatusCompleted,
		SupplierItems:  []entity.LineItem{li("X", 3, 100), li("Bulong A", 10, 5), li("Z", 1, 1)},
		SystemItems:    []entity.LineItem{li("Y", 3, 100), li("Bu Long A-01", 10, 5)},
	}))
	repo := &mockMappingRepo{mappings: []entity.StoredMapping{storedMapping("Bulong A", "Bu Long A-01")}}

	svc := NewMappingService(repo, runs, nil, 0, nopLogger{})

	proposals, err := svc.Discover(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, "X", proposals[0].SupplierItem.Name)
	assert.Equal(t, "Y", proposals[0].SystemItem.Name)
}

func TestMappingService_DiscoverNothingNew(t *testing.T) {
	runs := newMemRunRepo()
	require.NoError(t, runs.Create(context.Background(), &entity.ReconciliationRun{
		ID:             "run-1",
		SupplierEntity: supplier,
		SupplierItems:  []entity.LineItem{li("X", 3, 100)},
		SystemItems:    []entity.LineItem{li("Y", 4, 100)},
	}))

	svc := NewMappingService(&mockMappingRepo{}, runs, nil, 0, nopLogger{})

	proposals, err := svc.Discover(context.Background(), "run-1")
	require.NoError(t, err)
	assert.NotNil(t, proposals)
	assert.Empty(t, proposals)

	_, err = svc.Discover(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestMappingService_SaveProposalsAllSucceed(t *testing.T) {
	repo := &mockMappingRepo{}
	d := dispatcher.NewDispatcher()
	var saved atomic.Pointer[event.Event]
	d.Subscribe(event.TypeMappingsSaved, "recorder", func(ctx context.Context, evt *event.Event) error {
		saved.Store(evt)
		return nil
	})

	svc := NewMappingService(repo, newMemRunRepo(), d, 2, nopLogger{})

	report, err := svc.SaveProposals(context.Background(), supplier, []entity.MappingProposal{
		proposal("X", "Y", 3, 100),
		proposal("Nut", "NUT-01", 4, 2),
		proposal("Washer", "WSH", 100, 0.1),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.FailedCount())

	stored, err := repo.Query(context.Background(), supplier)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	require.NoError(t, d.Close())
	evt := saved.Load()
	require.NotNil(t, evt)
	assert.Equal(t, supplier, evt.GetPayloadString(event.KeySupplier))
	assert.Equal(t, int64(3), evt.GetPayloadInt(event.KeySucceeded))
}

func TestMappingService_SaveProposalsPartialFailure(t *testing.T) {
	repo := &mockMappingRepo{createFunc: func(m *entity.StoredMapping) error {
		if m.SupplierItemName == "Nut" {
			return errors.New("constraint failed")
		}
		return nil
	}}
	svc := NewMappingService(repo, newMemRunRepo(), nil, 0, nopLogger{})

	report, err := svc.SaveProposals(context.Background(), supplier, []entity.MappingProposal{
		proposal("X", "Y", 3, 100),
		proposal("Nut", "NUT-01", 4, 2),
		proposal("", "Blank", 1, 1),
		proposal("Washer", "WSH", 100, 0.1),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMappingSave)

	var mse *MappingSaveError
	require.True(t, errors.As(err, &mse))
	assert.Same(t, report, mse.Report)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.FailedCount())
	assert.Equal(t, []string{
		"Nut -> NUT-01: constraint failed",
		" -> Blank: item names must not be empty",
	}, report.FailedReasons())
	assert.Contains(t, err.Error(), "2 of 4 failed")

	stored, _ := repo.Query(context.Background(), supplier)
	assert.Len(t, stored, 2)
}

func TestMappingService_SaveProposalsInvalid(t *testing.T) {
	svc := NewMappingService(&mockMappingRepo{}, newMemRunRepo(), nil, 0, nopLogger{})

	_, err := svc.SaveProposals(context.Background(), "", []entity.MappingProposal{proposal("X", "Y", 1, 1)})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.SaveProposals(context.Background(), supplier, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMappingService_List(t *testing.T) {
	repo := &mockMappingRepo{mappings: []entity.StoredMapping{
		storedMapping("A", "a"),
		{SupplierItemName: "B", SystemItemName: "b", SupplierEntityName: "Other Co"},
	}}
	svc := NewMappingService(repo, newMemRunRepo(), nil, 0, nopLogger{})

	mappings, err := svc.List(context.Background(), "  "+supplier+" ")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "A", mappings[0].SupplierItemName)

	empty, err := svc.List(context.Background(), "Nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = svc.List(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
