// Package statemachine implements small finite state machines with guarded,
// side-effecting transitions.
//
// A Definition is an immutable transition table built once, typically at
// package level, and shared by every run. Start hands out a Machine holding the
// current state and history of a single run:
//
//	const (
//		Unknown  = statemachine.StringState("unknown")
//		Active   = statemachine.StringState("active")
//		Inactive = statemachine.StringState("inactive")
//
//		Confirmed = statemachine.StringEvent("confirmed")
//		Rejected  = statemachine.StringEvent("rejected")
//	)
//
//	var resolution = statemachine.MustDefine(Unknown,
//		statemachine.WithTransition(Unknown, Active, Confirmed),
//		statemachine.WithTransition(Unknown, Inactive, Rejected),
//		statemachine.WithTerminal(Active, Inactive),
//	)
//
//	m := resolution.Start()
//	_ = m.Fire(ctx, Confirmed, nil)
//	m.Current() // Active
//	err := m.Fire(ctx, Rejected, nil) // errors.Is(err, statemachine.ErrTerminalState)
//
// Several transitions may share a state and event; they are tried in
// declaration order and the first whose guards pass wins. Actions run before the
// state changes and can veto it by returning an error. OnTransition observes
// committed steps and runs outside the lock.
package statemachine
