package simulation

import (
	"sync"

	"github.com/mantasimb/jetraiders/pkg/protocol"
)

// StateSlot is a single-slot, overwrite-on-write store for a lobby's current
// ServerState, with best-effort change notification to subscribers. Only the
// simulation worker ever calls Set; readers only ever call Get/Subscribe.
type StateSlot struct {
	mu     sync.RWMutex
	value  protocol.ServerState
	subs   map[int]chan protocol.ServerState
	nextID int
}

// NewStateSlot returns a slot initialized to the Lobby state.
func NewStateSlot() *StateSlot {
	return &StateSlot{
		value: protocol.StateLobby(),
		subs:  make(map[int]chan protocol.ServerState),
	}
}

// Get returns the current state.
func (s *StateSlot) Get() protocol.ServerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set overwrites the current state and notifies every subscriber
// non-blockingly; a subscriber that isn't reading simply re-reads via Get on
// its next change signal instead of missing the transition entirely, since
// state transitions are monotonic and idempotent to re-observe.
func (s *StateSlot) Set(v protocol.ServerState) {
	s.mu.Lock()
	s.value = v
	subs := make([]chan protocol.ServerState, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe registers a new notification channel and returns it along with a
// cancel function that must be called when the subscriber is done.
func (s *StateSlot) Subscribe() (<-chan protocol.ServerState, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan protocol.ServerState, 1)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
	return ch, cancel
}
