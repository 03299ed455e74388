// Package fsm provides a small, strict, generic finite-state machine used
// to implement the boundary lifecycle (§4.10.1) and similar table-driven
// state transitions across the core. Unknown transitions are errors, never
// silently ignored.
package fsm

import (
	"context"
	"fmt"
	"sync"
)

// Transition describes a single edge in the machine. Guard may reject the
// transition before it applies; Action runs the transition's side effects.
type Transition[S ~string, E ~string] struct {
	From   S
	Event  E
	To     S
	Guard  func(ctx context.Context, from S, event E) error
	Action func(ctx context.Context, from S, to S, event E) error
}

// Machine is a test-friendly FSM runner, safe for concurrent use.
type Machine[S ~string, E ~string] struct {
	mu    sync.Mutex
	state S
	index map[string]Transition[S, E]
}

// New builds a Machine from an explicit transition table.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("fsm: duplicate transition %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx}, nil
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire attempts to apply an event atomically. An event not in the table for
// the current state is an invalid-transition error; callers that must force
// an absorbing failure state do so via ForceState, not Fire.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (S, error) {
	m.mu.Lock()
	from := m.state
	t, ok := m.index[key(from, event)]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("fsm: invalid transition state=%s event=%s", from, event)
	}
	to := t.To
	m.mu.Unlock()

	if t.Guard != nil {
		if err := t.Guard(ctx, from, event); err != nil {
			return from, err
		}
	}
	if t.Action != nil {
		if err := t.Action(ctx, from, to, event); err != nil {
			return from, err
		}
	}

	m.mu.Lock()
	if m.state != from {
		cur := m.state
		m.mu.Unlock()
		return cur, fmt.Errorf("fsm: concurrent transition detected from=%s cur=%s event=%s", from, cur, event)
	}
	m.state = to
	m.mu.Unlock()
	return to, nil
}

// ForceState unconditionally sets the state, bypassing the transition
// table. Used to drive a machine into an absorbing failure state from any
// active state (§4.10.1).
func (m *Machine[S, E]) ForceState(s S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
