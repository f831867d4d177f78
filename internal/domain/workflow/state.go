package workflow

import "github.com/garyjia/ai-reconciliation/internal/domain/entity"

// State is a reconciliation run status
type State string

const (
	StateInterim     State = entity.RunStatusInterim
	StateClassifying State = entity.RunStatusClassifying
	StateCompleted   State = entity.RunStatusCompleted
	StateDegraded    State = entity.RunStatusDegraded
)

var validStates = map[State]bool{
	StateInterim:     true,
	StateClassifying: true,
	StateCompleted:   true,
	StateDegraded:    true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateDegraded:  true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known run status
func (s State) IsValid() bool {
	return validStates[s]
}
