package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

type fakeService struct {
	mu         sync.Mutex
	pending    []string
	classified []string
	released   int32
	claimErr   error
	releaseErr error
	classify   func(ctx context.Context, id string) (*entity.ReconciliationRun, error)
}

func (f *fakeService) ClaimPending(_ context.Context, limit int) ([]*entity.ReconciliationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	n := len(f.pending)
	if limit > 0 && n > limit {
		n = limit
	}
	var runs []*entity.ReconciliationRun
	for _, id := range f.pending[:n] {
		runs = append(runs, &entity.ReconciliationRun{ID: id, Status: entity.RunStatusClassifying})
	}
	f.pending = f.pending[n:]
	return runs, nil
}

func (f *fakeService) Classify(ctx context.Context, id string) (*entity.ReconciliationRun, error) {
	f.mu.Lock()
	f.classified = append(f.classified, id)
	fn := f.classify
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, id)
	}
	return &entity.ReconciliationRun{ID: id, Status: entity.RunStatusCompleted}, nil
}

func (f *fakeService) ReleaseInterrupted(context.Context) (int, error) {
	atomic.AddInt32(&f.released, 1)
	return 0, f.releaseErr
}

func (f *fakeService) classifiedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.classified...)
}

func TestClassificationWorker_RunOnce(t *testing.T) {
	svc := &fakeService{
		pending: []string{"a", "b", "c"},
		classify: func(_ context.Context, id string) (*entity.ReconciliationRun, error) {
			switch id {
			case "b":
				return &entity.ReconciliationRun{ID: id, Status: entity.RunStatusDegraded}, nil
			case "c":
				return nil, errors.New("database locked")
			}
			return &entity.ReconciliationRun{ID: id, Status: entity.RunStatusCompleted}, nil
		},
	}
	w := NewClassificationWorker(ClassificationWorkerConfig{BatchSize: 10}, svc, zap.NewNop())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, svc.classifiedIDs())

	stats := w.Stats()
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Degraded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, "database locked", stats.LastError)

	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClassificationWorker_RespectsBatchSize(t *testing.T) {
	svc := &fakeService{pending: []string{"a", "b", "c"}}
	w := NewClassificationWorker(ClassificationWorkerConfig{BatchSize: 2}, svc, zap.NewNop())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, svc.classifiedIDs(), 2)
}

func TestClassificationWorker_ClaimError(t *testing.T) {
	svc := &fakeService{claimErr: errors.New("busy")}
	w := NewClassificationWorker(ClassificationWorkerConfig{}, svc, zap.NewNop())

	_, err := w.RunOnce(context.Background())
	assert.ErrorContains(t, err, "busy")
	assert.Equal(t, "busy", w.Stats().LastError)
}

func TestClassificationWorker_AppliesProcessTimeout(t *testing.T) {
	var hadDeadline atomic.Bool
	svc := &fakeService{
		pending: []string{"a"},
		classify: func(ctx context.Context, id string) (*entity.ReconciliationRun, error) {
			_, ok := ctx.Deadline()
			hadDeadline.Store(ok)
			return &entity.ReconciliationRun{ID: id, Status: entity.RunStatusCompleted}, nil
		},
	}
	w := NewClassificationWorker(ClassificationWorkerConfig{ProcessTimeout: time.Minute}, svc, zap.NewNop())

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, hadDeadline.Load())
}

func TestClassificationWorker_StartStop(t *testing.T) {
	svc := &fakeService{pending: []string{"a", "b"}}
	w := NewClassificationWorker(ClassificationWorkerConfig{PollInterval: 10 * time.Millisecond}, svc, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&svc.released))

	assert.Eventually(t, func() bool {
		return len(svc.classifiedIDs()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.Equal(t, 2, w.Stats().Completed)
}

func TestClassificationWorker_StartFailsWhenReleaseFails(t *testing.T) {
	svc := &fakeService{releaseErr: errors.New("no db")}
	w := NewClassificationWorker(ClassificationWorkerConfig{}, svc, zap.NewNop())

	assert.ErrorContains(t, w.Start(context.Background()), "no db")
	require.NoError(t, w.Stop())
}

type stubWorker struct {
	name     string
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *stubWorker) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started.Store(true)
	return nil
}

func (s *stubWorker) Stop() error {
	s.stopped.Store(true)
	return nil
}

func (s *stubWorker) Name() string { return s.name }

func TestWorkerManager_Lifecycle(t *testing.T) {
	m := NewWorkerManager(zap.NewNop())
	good := &stubWorker{name: "good"}
	bad := &stubWorker{name: "bad", startErr: errors.New("nope")}
	m.Register(good)
	m.Register(bad)
	assert.Equal(t, 2, m.GetWorkerCount())

	err := m.StartAll(context.Background())
	assert.ErrorContains(t, err, "bad: nope")
	assert.True(t, good.started.Load())
	assert.True(t, m.IsRunning())

	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.True(t, good.stopped.Load())
	assert.False(t, m.IsRunning())
	require.NoError(t, m.StopAll())
}
