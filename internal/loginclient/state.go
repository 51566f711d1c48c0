package loginclient

import (
	"fmt"
	"sync"
)

type State string

const (
	StateAnonymous     State = "anonymous"
	StateExchanging    State = "exchanging"
	StateAuthenticated State = "authenticated"
	StateFailed        State = "failed"
)

type Event string

const (
	EventInitiate          Event = "initiate"
	EventCodeReceived      Event = "code_received"
	EventExchangeSucceeded Event = "exchange_succeeded"
	EventExchangeFailed    Event = "exchange_failed"
	EventProfileFetched    Event = "profile_fetched"
	EventProfileFailed     Event = "profile_failed"
)

// Initiate from Failed or Authenticated starts over.
var transitions = map[State]map[Event]State{
	StateAnonymous: {
		EventInitiate:     StateAnonymous,
		EventCodeReceived: StateExchanging,
	},
	StateExchanging: {
		EventExchangeSucceeded: StateAuthenticated,
		EventExchangeFailed:    StateFailed,
	},
	StateAuthenticated: {
		EventProfileFetched: StateAuthenticated,
		EventProfileFailed:  StateFailed,
		EventInitiate:       StateAnonymous,
	},
	StateFailed: {
		EventInitiate: StateAnonymous,
	},
}

type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s on %s", e.Event, e.From)
}

func (s State) CanHandle(event Event) bool {
	_, ok := transitions[s][event]
	return ok
}

// LoginAffordance reports whether the UI should offer the login action.
func (s State) LoginAffordance() bool {
	return s == StateAnonymous || s == StateFailed
}

// Machine is the client's login state. It is safe for concurrent use.
type Machine struct {
	mu      sync.Mutex
	current State
	history []State
}

func NewMachine() *Machine {
	return &Machine{current: StateAnonymous}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Machine) Fire(event Event) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transitions[m.current][event]
	if !ok {
		return m.current, &TransitionError{From: m.current, Event: event}
	}

	m.history = append(m.history, m.current)
	m.current = next
	return next, nil
}

// History lists the states left behind, oldest first.
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}
