package statemachine

import "context"

// State is a node of the machine.
type State interface {
	Name() string
}

// Event triggers a transition out of a state.
type Event interface {
	Name() string
}

// Guard decides at fire time whether a transition may be taken.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs after the guards passed and before the state changes.
// Returning an error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Transition is one edge of a Definition.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// Step records a transition a Machine has taken.
type Step struct {
	From  State
	To    State
	Event Event
}

// StringState is a string-backed State.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is a string-backed Event.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }
