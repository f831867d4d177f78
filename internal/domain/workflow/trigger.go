package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerClaim hands an interim run to exactly one classifier call
	TriggerClaim    Trigger = "CLAIM"
	TriggerComplete Trigger = "COMPLETE"
	TriggerDegrade  Trigger = "DEGRADE"
	// TriggerRelease returns a run stranded by a stopped process to the queue
	TriggerRelease Trigger = "RELEASE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
