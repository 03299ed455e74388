package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errGuardRejected = errors.New("guard rejected")

type state string
type event string

const (
	stateA state = "A"
	stateB state = "B"
	stateC state = "C"
)

const (
	eventGo    event = "go"
	eventReset event = "reset"
)

func TestMachine_ValidTransition(t *testing.T) {
	m, err := New(stateA, []Transition[state, event]{
		{From: stateA, Event: eventGo, To: stateB},
		{From: stateB, Event: eventGo, To: stateC},
	})
	require.NoError(t, err)

	next, err := m.Fire(context.Background(), eventGo)
	require.NoError(t, err)
	require.Equal(t, stateB, next)
	require.Equal(t, stateB, m.State())
}

func TestMachine_InvalidTransitionIsError(t *testing.T) {
	m, err := New(stateA, []Transition[state, event]{
		{From: stateA, Event: eventGo, To: stateB},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), eventReset)
	require.Error(t, err)
	require.Equal(t, stateA, m.State())
}

func TestMachine_GuardRejectsTransition(t *testing.T) {
	m, err := New(stateA, []Transition[state, event]{
		{From: stateA, Event: eventGo, To: stateB, Guard: func(ctx context.Context, from state, e event) error {
			return errGuardRejected
		}},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), eventGo)
	require.ErrorIs(t, err, errGuardRejected)
	require.Equal(t, stateA, m.State())
}

func TestMachine_ForceState(t *testing.T) {
	m, err := New(stateA, []Transition[state, event]{{From: stateA, Event: eventGo, To: stateB}})
	require.NoError(t, err)
	m.ForceState(stateC)
	require.Equal(t, stateC, m.State())
}

func TestNew_DuplicateTransitionIsError(t *testing.T) {
	_, err := New(stateA, []Transition[state, event]{
		{From: stateA, Event: eventGo, To: stateB},
		{From: stateA, Event: eventGo, To: stateC},
	})
	require.Error(t, err)
}
