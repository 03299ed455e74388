// Package channelmanager implements the runtime core (§4.10): the
// per-channel state machine that, while viewers are attached, drives a
// single PlayoutSession across a contiguous sequence of execution entries.
package channelmanager

import "github.com/retrovue/core/internal/fsm"

// BoundaryState is one state of the boundary lifecycle (§4.10.1).
type BoundaryState string

const (
	BoundaryNone           BoundaryState = "NONE"
	BoundaryPlanned        BoundaryState = "PLANNED"
	BoundaryPreloadIssued  BoundaryState = "PRELOAD_ISSUED"
	BoundarySwitchScheduled BoundaryState = "SWITCH_SCHEDULED"
	BoundarySwitchIssued   BoundaryState = "SWITCH_ISSUED"
	BoundaryLive           BoundaryState = "LIVE"
	BoundaryFailedTerminal BoundaryState = "FAILED_TERMINAL"
)

// BoundaryEvent drives the boundary lifecycle forward.
type BoundaryEvent string

const (
	EventPlan            BoundaryEvent = "plan"
	EventIssuePreload    BoundaryEvent = "issue_preload"
	EventScheduleSwitch  BoundaryEvent = "schedule_switch"
	EventIssueSwitch     BoundaryEvent = "issue_switch"
	EventGoLive          BoundaryEvent = "go_live"
	EventReturnToNone    BoundaryEvent = "return_to_none"
	EventReturnToPlanned BoundaryEvent = "return_to_planned"
	EventFail            BoundaryEvent = "fail"
)

// boundaryTransitions is the exact, exhaustive transition table from
// §4.10.1. Every active state also has a Fail edge to the absorbing
// FAILED_TERMINAL state; any event not listed here is an invalid
// transition the caller must handle by forcing FAILED_TERMINAL itself
// (fsm.Machine.ForceState), since Fire only ever returns a table lookup
// miss as an error, never a silent no-op.
var boundaryTransitions = []fsm.Transition[BoundaryState, BoundaryEvent]{
	{From: BoundaryNone, Event: EventPlan, To: BoundaryPlanned},
	{From: BoundaryPlanned, Event: EventIssuePreload, To: BoundaryPreloadIssued},
	{From: BoundaryPreloadIssued, Event: EventScheduleSwitch, To: BoundarySwitchScheduled},
	{From: BoundarySwitchScheduled, Event: EventIssueSwitch, To: BoundarySwitchIssued},
	{From: BoundarySwitchIssued, Event: EventGoLive, To: BoundaryLive},
	{From: BoundaryLive, Event: EventReturnToNone, To: BoundaryNone},
	{From: BoundaryLive, Event: EventReturnToPlanned, To: BoundaryPlanned},

	{From: BoundaryPlanned, Event: EventFail, To: BoundaryFailedTerminal},
	{From: BoundaryPreloadIssued, Event: EventFail, To: BoundaryFailedTerminal},
	{From: BoundarySwitchScheduled, Event: EventFail, To: BoundaryFailedTerminal},
	{From: BoundarySwitchIssued, Event: EventFail, To: BoundaryFailedTerminal},
	{From: BoundaryLive, Event: EventFail, To: BoundaryFailedTerminal},
}

// NewBoundaryMachine builds the boundary lifecycle FSM, starting in NONE.
func NewBoundaryMachine() (*fsm.Machine[BoundaryState, BoundaryEvent], error) {
	return fsm.New(BoundaryNone, boundaryTransitions)
}
