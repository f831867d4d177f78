package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

func TestState(t *testing.T) {
	tests := []struct {
		state    State
		valid    bool
		terminal bool
	}{
		{StateInterim, true, false},
		{StateClassifying, true, false},
		{StateCompleted, true, true},
		{StateDegraded, true, true},
		{State("PENDING"), false, false},
		{State(""), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.state.IsValid())
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		trigger Trigger
		want    string
		wantErr bool
	}{
		{"claim interim", entity.RunStatusInterim, TriggerClaim, entity.RunStatusClassifying, false},
		{"complete classifying", entity.RunStatusClassifying, TriggerComplete, entity.RunStatusCompleted, false},
		{"degrade classifying", entity.RunStatusClassifying, TriggerDegrade, entity.RunStatusDegraded, false},
		{"release classifying", entity.RunStatusClassifying, TriggerRelease, entity.RunStatusInterim, false},
		{"complete without claim", entity.RunStatusInterim, TriggerComplete, "", true},
		{"claim twice", entity.RunStatusClassifying, TriggerClaim, "", true},
		{"completed is final", entity.RunStatusCompleted, TriggerDegrade, "", true},
		{"degraded is final", entity.RunStatusDegraded, TriggerClaim, "", true},
		{"unknown status", "PENDING", TriggerClaim, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.trigger)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunLifecycle_ReleaseThenReclaim(t *testing.T) {
	ctx := context.Background()
	m, err := NewRunLifecycle(entity.RunStatusInterim)
	require.NoError(t, err)

	require.NoError(t, m.Fire(ctx, TriggerClaim))
	require.NoError(t, m.Fire(ctx, TriggerRelease))
	require.NoError(t, m.Fire(ctx, TriggerClaim))
	require.NoError(t, m.Fire(ctx, TriggerDegrade))
	assert.Equal(t, StateDegraded, m.State())
	assert.True(t, m.State().IsTerminal())
}

func TestRunLifecycle_FailedFireKeepsState(t *testing.T) {
	m, err := NewRunLifecycle(entity.RunStatusCompleted)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Fire(context.Background(), TriggerRelease), ErrInvalidTransition)
	assert.Equal(t, StateCompleted, m.State())
}

func TestBuilder_PermitReplacesTarget(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateClassifying).
		Permit(TriggerComplete, StateDegraded).
		Permit(TriggerComplete, StateCompleted)

	m := b.Build(StateClassifying)
	require.NoError(t, m.Fire(context.Background(), TriggerComplete))
	assert.Equal(t, StateCompleted, m.State())
}

func TestBuilder_BuildIsolatesLaterConfiguration(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateInterim).Permit(TriggerClaim, StateClassifying)
	m := b.Build(StateInterim)

	b.Configure(StateInterim).Permit(TriggerRelease, StateInterim)

	assert.ErrorIs(t, m.Fire(context.Background(), TriggerRelease), ErrInvalidTransition)
	assert.NoError(t, b.Build(StateInterim).Fire(context.Background(), TriggerRelease))
}

func TestBuilder_PanicsOnInvalidStates(t *testing.T) {
	b := NewBuilder()
	assert.Panics(t, func() { b.Configure(State("BOGUS")) })
	assert.Panics(t, func() { b.Build(State("BOGUS")) })
	assert.Panics(t, func() { b.Configure(StateInterim).Permit(TriggerClaim, State("BOGUS")) })
}
