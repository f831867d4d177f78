package workflow

import "errors"

// ErrInvalidTransition is returned when a state transition is not allowed
var ErrInvalidTransition = errors.New("invalid run status transition")
