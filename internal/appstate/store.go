package appstate

import (
	"sync"
	"time"
)

// DefaultLogSize bounds the per-user event log
const DefaultLogSize = 100

// Store holds the current State per user
type Store struct {
	mu      sync.RWMutex
	states  map[string]State
	logs    map[string][]Event
	logSize int
	now     func() time.Time
}

// NewStore creates an empty Store. A non-positive logSize uses DefaultLogSize.
func NewStore(logSize int) *Store {
	if logSize <= 0 {
		logSize = DefaultLogSize
	}
	return &Store{
		states:  make(map[string]State),
		logs:    make(map[string][]Event),
		logSize: logSize,
		now:     time.Now,
	}
}

// Dispatch applies ev to the user's state and returns the new snapshot
func (s *Store) Dispatch(ev Event) State {
	if ev.At.IsZero() {
		ev.At = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.states[ev.UserID]
	if cur.UserID == "" {
		cur.UserID = ev.UserID
	}
	next := Reduce(cur, ev)
	s.states[ev.UserID] = next

	log := append(s.logs[ev.UserID], ev)
	if len(log) > s.logSize {
		log = append([]Event(nil), log[len(log)-s.logSize:]...)
	}
	s.logs[ev.UserID] = log

	return next
}

// Snapshot returns the user's current state
func (s *Store) Snapshot(userID string) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[userID]
	if !ok {
		return State{UserID: userID}
	}
	return st
}

// Events returns a copy of the user's event log, oldest first
func (s *Store) Events(userID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.logs[userID]...)
}

// Replay rebuilds a state from an event log
func Replay(userID string, events []Event) State {
	st := State{UserID: userID}
	for _, ev := range events {
		st = Reduce(st, ev)
	}
	return st
}
