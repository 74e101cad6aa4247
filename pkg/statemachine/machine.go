package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is a single run over a Definition. It is safe for concurrent use.
type Machine struct {
	def *Definition

	mu       sync.RWMutex
	current  State
	history  []Step
	observer func(ctx context.Context, step Step)
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// OnTransition registers fn to run after every successful transition.
func OnTransition(fn func(ctx context.Context, step Step)) MachineOption {
	return func(m *Machine) { m.observer = fn }
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Done reports whether the machine reached a terminal state.
func (m *Machine) Done() bool {
	return m.def.IsTerminal(m.Current())
}

// History returns the transitions taken so far, oldest first.
func (m *Machine) History() []Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Step, len(m.history))
	copy(out, m.history)
	return out
}

// Fire takes the first transition for event whose guards pass.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	t, err := m.match(ctx, event, data)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	for _, action := range t.Actions {
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}
	step := Step{From: m.current, To: t.To, Event: event}
	m.current = t.To
	m.history = append(m.history, step)
	observer := m.observer
	m.mu.Unlock()

	if observer != nil {
		observer(ctx, step)
	}
	return nil
}

// CanFire reports whether Fire would find a transition, without running actions.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.match(ctx, event, data)
	return err == nil
}

// Must be called with lock held.
func (m *Machine) match(ctx context.Context, event Event, data any) (*Transition, error) {
	from := m.current.Name()
	if m.def.terminal[from] {
		return nil, &TransitionError{State: from, Event: event.Name(), Err: ErrTerminalState}
	}
	candidates := m.def.transitions[from][event.Name()]
	if len(candidates) == 0 {
		return nil, &TransitionError{State: from, Event: event.Name(), Err: ErrNoTransition}
	}
	for i := range candidates {
		if guardsPass(ctx, candidates[i].Guards, m.current, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, &TransitionError{State: from, Event: event.Name(), Err: ErrTransitionRejected}
}

func guardsPass(ctx context.Context, guards []Guard, from State, event Event, data any) bool {
	for _, g := range guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
