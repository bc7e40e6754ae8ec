package speech

import (
	"fmt"
	"sync"
)

// State is the recognition lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateRetrying  State = "retrying"
	StateFailed    State = "failed"
)

// Trigger names an event that moves the recognition state machine.
type Trigger string

const (
	TriggerStart        Trigger = "start"
	TriggerResult       Trigger = "result"
	TriggerNetworkError Trigger = "network_error"
	TriggerFatalError   Trigger = "fatal_error"
	TriggerEnd          Trigger = "end"
	TriggerRetry        Trigger = "retry"
	TriggerStop         Trigger = "stop"
)

// transitions lists, per state, where each accepted trigger leads.
var transitions = map[State]map[Trigger]State{
	StateIdle: {
		TriggerStart:  StateListening,
		TriggerResult: StateIdle,
		TriggerEnd:    StateIdle,
		TriggerStop:   StateIdle,
	},
	StateListening: {
		TriggerResult:       StateListening,
		TriggerNetworkError: StateRetrying,
		TriggerFatalError:   StateFailed,
		TriggerEnd:          StateIdle,
		TriggerStop:         StateIdle,
	},
	StateRetrying: {
		TriggerRetry:      StateListening,
		TriggerFatalError: StateFailed,
		TriggerEnd:        StateRetrying,
		TriggerStop:       StateIdle,
	},
	StateFailed: {
		TriggerStart: StateListening,
		TriggerEnd:   StateFailed,
		TriggerStop:  StateIdle,
	},
}

// Machine tracks the recognition state. It is safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Can reports whether t is accepted in the current state.
func (m *Machine) Can(t Trigger) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := transitions[m.state][t]
	return ok
}

// Fire applies t and returns the resulting state. Rejected triggers leave
// the state unchanged.
func (m *Machine) Fire(t Trigger) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transitions[m.state][t]
	if !ok {
		return m.state, fmt.Errorf("invalid trigger %s in state %s", t, m.state)
	}
	m.state = next
	return next, nil
}
