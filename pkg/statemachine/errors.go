package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState       = errors.New("invalid state: state cannot be nil")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidEvent       = errors.New("invalid event: event cannot be nil")
	ErrNoTransition       = errors.New("no transition available")
	ErrTransitionRejected = errors.New("transition rejected by guards")
	ErrTerminalState      = errors.New("machine is in a terminal state")
)

// TransitionError reports why Fire could not move out of State on Event.
// It unwraps to ErrNoTransition, ErrTransitionRejected or ErrTerminalState.
type TransitionError struct {
	State string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("state %q event %q: %v", e.State, e.Event, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }
