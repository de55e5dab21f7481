// Package workflow holds the lifecycle rules of budgets, projects and
// payments as explicit transition tables.
package workflow

import (
	"sort"

	"github.com/devstudio/backoffice/pkg/errors"
)

// Machine enforces valid state transitions for one kind of entity.
// Invalid transitions return an InvalidTransitionError and the current state.
type Machine[S ~string, A ~string] struct {
	entity      string
	transitions map[transitionKey[S, A]]S
	terminal    map[S]bool
}

type transitionKey[S ~string, A ~string] struct {
	state  S
	action A
}

func newMachine[S ~string, A ~string](entity string, terminal ...S) *Machine[S, A] {
	m := &Machine[S, A]{
		entity:      entity,
		transitions: make(map[transitionKey[S, A]]S),
		terminal:    make(map[S]bool, len(terminal)),
	}
	for _, s := range terminal {
		m.terminal[s] = true
	}
	return m
}

func (m *Machine[S, A]) add(via A, to S, from ...S) {
	for _, f := range from {
		m.transitions[transitionKey[S, A]{state: f, action: via}] = to
	}
}

// Transition returns the state reached by applying action to current.
func (m *Machine[S, A]) Transition(current S, action A) (S, error) {
	next, ok := m.transitions[transitionKey[S, A]{state: current, action: action}]
	if !ok {
		return current, errors.NewInvalidTransitionError(m.entity, string(current), string(action))
	}
	return next, nil
}

// CanTransition checks if a transition is valid without performing it.
func (m *Machine[S, A]) CanTransition(current S, action A) bool {
	_, ok := m.transitions[transitionKey[S, A]{state: current, action: action}]
	return ok
}

// ValidTransitions returns the actions allowed from state, sorted.
func (m *Machine[S, A]) ValidTransitions(state S) []A {
	var result []A
	for key := range m.transitions {
		if key.state == state {
			result = append(result, key.action)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// IsTerminal reports whether state accepts no further lifecycle actions.
func (m *Machine[S, A]) IsTerminal(state S) bool {
	return m.terminal[state]
}

// Reaches returns the action that moves from one state to another, if any.
func (m *Machine[S, A]) Reaches(from, to S) (A, bool) {
	for key, next := range m.transitions {
		if key.state == from && next == to {
			return key.action, true
		}
	}
	var zero A
	return zero, false
}
