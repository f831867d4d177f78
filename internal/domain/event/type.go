package event

// Type identifies the type of domain event
type Type string

const (
	// TypeRunInterim fires once deterministic matching is persisted.
	TypeRunInterim Type = "run.interim"
	// TypeRunCompleted fires when the classifier result has been merged.
	TypeRunCompleted Type = "run.completed"
	// TypeRunDegraded fires when classification failed and the interim result stands.
	TypeRunDegraded Type = "run.degraded"
	// TypeMappingsSaved fires after a batch of mapping proposals was persisted.
	TypeMappingsSaved Type = "mappings.saved"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRunInterim, TypeRunCompleted, TypeRunDegraded, TypeMappingsSaved:
		return true
	default:
		return false
	}
}
