package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/amarouch/ilmq/internal/bus"
)

// State represents which surface the client should currently be on. The quiz
// session lifecycle itself (lobby -> in_progress -> completed) is owned by
// the room service; this machine only tracks local routing derived from it.
type State string

const (
	Booting State = "BOOTING"
	Idle    State = "IDLE"
	Lobby   State = "LOBBY"
	InGame  State = "IN_GAME"
	Results State = "RESULTS"
	Error   State = "ERROR"
)

// validTransitions defines allowed routing transitions. Joining a room that
// is already in_progress routes straight from Idle to InGame.
var validTransitions = map[State][]State{
	Booting: {Idle, Error},
	Idle:    {Lobby, InGame, Error},
	Lobby:   {InGame, Idle, Error},
	InGame:  {Results, Idle, Error},
	Results: {Idle, Error},
	Error:   {Booting},
}

// Machine tracks and enforces client routing state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is
// invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "session.route_changed",
			Timestamp: time.Now(),
			Payload: RouteChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// RouteChange is the payload for routing change events.
type RouteChange struct {
	From State
	To   State
}

// RouteFor maps a remote session lifecycle state to the surface that should
// display it.
func RouteFor(sessionState string) State {
	switch sessionState {
	case "lobby":
		return Lobby
	case "in_progress":
		return InGame
	case "completed", "cancelled":
		return Results
	default:
		return Idle
	}
}
