package workflow

import "context"

// StateMachine tracks the current status of one run and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error
}
