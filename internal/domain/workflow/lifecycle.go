package workflow

import (
	"context"
	"fmt"
)

var runLifecycle = newRunLifecycleBuilder()

func newRunLifecycleBuilder() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StateInterim).
		Permit(TriggerClaim, StateClassifying)
	b.Configure(StateClassifying).
		Permit(TriggerComplete, StateCompleted).
		Permit(TriggerDegrade, StateDegraded).
		Permit(TriggerRelease, StateInterim)
	return b
}

// NewRunLifecycle returns a state machine for a run currently in status.
//
//	INTERIM --claim--> CLASSIFYING --complete--> COMPLETED
//	                        |  \--degrade--> DEGRADED
//	                        \--release--> INTERIM
func NewRunLifecycle(status string) (StateMachine, error) {
	state := State(status)
	if !state.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	return runLifecycle.Build(state), nil
}

// Next returns the status a run moves to when trigger fires from status.
func Next(status string, trigger Trigger) (string, error) {
	m, err := NewRunLifecycle(status)
	if err != nil {
		return "", err
	}
	if err := m.Fire(context.Background(), trigger); err != nil {
		return "", err
	}
	return m.State().String(), nil
}
