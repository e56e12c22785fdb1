package app

import "sync"

type State string

type Event string

const (
	StateIdle       State = "IDLE"
	StateFetching   State = "FETCHING_PRICES"
	StateEvaluating State = "EVALUATING"
	StateNoAction   State = "NO_ACTION"
	StateExecuting  State = "EXECUTING"
	StateReporting  State = "REPORTING"
)

const (
	EventTick            Event = "TICK"
	EventPricesFetched   Event = "PRICES_FETCHED"
	EventFetchFailed     Event = "FETCH_FAILED"
	EventThresholdMet    Event = "THRESHOLD_MET"
	EventNoOpportunity   Event = "NO_OPPORTUNITY"
	EventExecuted        Event = "EXECUTED"
	EventExecutionFailed Event = "EXECUTION_FAILED"
	EventReported        Event = "REPORTED"
)

// StateMachine tracks where a single evaluation cycle is. Every cycle walks
// Idle -> Fetching -> Evaluating -> (NoAction | Executing) -> Reporting and
// back to Idle; unexpected events leave the state unchanged.
type StateMachine struct {
	mu    sync.Mutex
	State State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{State: StateIdle}
}

func (s *StateMachine) Apply(event Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = nextState(s.State, event)
	return s.State
}

func (s *StateMachine) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func nextState(current State, event Event) State {
	switch current {
	case StateIdle:
		if event == EventTick {
			return StateFetching
		}
	case StateFetching:
		if event == EventPricesFetched {
			return StateEvaluating
		}
		if event == EventFetchFailed {
			return StateReporting
		}
	case StateEvaluating:
		if event == EventThresholdMet {
			return StateExecuting
		}
		if event == EventNoOpportunity {
			return StateNoAction
		}
	case StateNoAction:
		if event == EventReported {
			return StateReporting
		}
	case StateExecuting:
		if event == EventExecuted || event == EventExecutionFailed {
			return StateReporting
		}
	case StateReporting:
		if event == EventReported {
			return StateIdle
		}
	}
	return current
}
