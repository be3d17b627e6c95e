package sync

import (
	gosync "sync"
	"time"
)

// State is the engine's externally visible condition.
type State string

// Engine states
const (
	// StateIdle means no cycle is running and the last one succeeded.
	StateIdle State = "idle"

	// StateSyncing means a push/pull cycle is in flight.
	StateSyncing State = "syncing"

	// StateOffline means connectivity is down; mutations queue locally.
	StateOffline State = "offline"

	// StateError means the last cycle failed; the next trigger retries.
	StateError State = "error"
)

// Event is a status notification delivered to subscribers. Warning is set
// for non-fatal conditions, such as a local change overwritten by the
// server or an outbox entry abandoned at the retry ceiling.
type Event struct {
	State   State
	Pending int
	Warning string
	Err     error
	At      time.Time
}

// subscribers is a small channel fan-out registry. Delivery is
// best-effort: a subscriber that stops draining loses events rather than
// blocking the engine.
type subscribers struct {
	mu   gosync.Mutex
	subs map[int]chan Event
	next int
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[int]chan Event)}
}

// subscribe registers a new listener and returns its channel plus a
// cancel function. The cancel function is idempotent.
func (s *subscribers) subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan Event, 16)
	s.subs[id] = ch

	var once gosync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// publish sends the event to every subscriber without blocking.
func (s *subscribers) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
