package statemachine

import "fmt"

// Definition is an immutable transition table. It is built once and shared;
// every run gets its own Machine from Start.
type Definition struct {
	initial     State
	transitions map[string]map[string][]Transition
	terminal    map[string]bool
}

// Option configures a Definition.
type Option func(*Definition) error

// TransitionOption attaches guards and actions to a transition.
type TransitionOption func(*Transition)

// Define builds a Definition starting in initial.
func Define(initial State, opts ...Option) (*Definition, error) {
	if initial == nil {
		return nil, ErrInvalidState
	}
	d := &Definition{
		initial:     initial,
		transitions: make(map[string]map[string][]Transition),
		terminal:    make(map[string]bool),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustDefine is like Define but panics on error. Intended for package-level tables.
func MustDefine(initial State, opts ...Option) *Definition {
	d, err := Define(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return d
}

// WithTransition adds an edge. Several edges may share from and event; the first
// whose guards all pass is taken.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(d *Definition) error {
		if from == nil || to == nil || event == nil {
			return ErrInvalidTransition
		}
		if d.terminal[from.Name()] {
			return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from.Name())
		}
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		byEvent, ok := d.transitions[from.Name()]
		if !ok {
			byEvent = make(map[string][]Transition)
			d.transitions[from.Name()] = byEvent
		}
		byEvent[event.Name()] = append(byEvent[event.Name()], t)
		return nil
	}
}

// WithTerminal marks states that accept no further events.
func WithTerminal(states ...State) Option {
	return func(d *Definition) error {
		for _, s := range states {
			if s == nil {
				return ErrInvalidState
			}
			if len(d.transitions[s.Name()]) > 0 {
				return fmt.Errorf("%w: %s has outgoing transitions", ErrInvalidTransition, s.Name())
			}
			d.terminal[s.Name()] = true
		}
		return nil
	}
}

// WithGuard adds guards to a transition. Nil guards are ignored.
func WithGuard(guards ...Guard) TransitionOption {
	return func(t *Transition) {
		for _, g := range guards {
			if g != nil {
				t.Guards = append(t.Guards, g)
			}
		}
	}
}

// WithAction adds actions to a transition. Nil actions are ignored.
func WithAction(actions ...Action) TransitionOption {
	return func(t *Transition) {
		for _, a := range actions {
			if a != nil {
				t.Actions = append(t.Actions, a)
			}
		}
	}
}

// Initial returns the state every Machine starts in.
func (d *Definition) Initial() State { return d.initial }

// IsTerminal reports whether s was marked terminal.
func (d *Definition) IsTerminal(s State) bool {
	return s != nil && d.terminal[s.Name()]
}

// Start returns a fresh Machine in the initial state.
func (d *Definition) Start(opts ...MachineOption) *Machine {
	m := &Machine{def: d, current: d.initial}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
