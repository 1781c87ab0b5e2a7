// Package presence keeps the agent's view of the user's status fresh: the status store, the
// activity tracker, the heartbeat controller and the user-initiated status menu.
package presence

import (
	"sync"

	"chorus/groupware/models"
)

// Store owns the user's presence status on the client. It is mutated only through Load and
// Reconcile; concurrent writers race with last-write-wins.
type Store struct {
	mu     sync.Mutex
	status models.PresenceStatus
	subs   map[chan models.PresenceStatus]struct{}
}

func NewStore() *Store {
	return &Store{
		status: models.PresenceStatus{Status: models.StatusOffline},
		subs:   make(map[chan models.PresenceStatus]struct{}),
	}
}

// Load sets the initial snapshot fetched at startup.
func (s *Store) Load(status models.PresenceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = copyStatus(status)
	s.publishLocked()
}

// Reconcile replaces local state with the canonical status from the server.
func (s *Store) Reconcile(status models.PresenceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = copyStatus(status)
	s.publishLocked()
}

// Snapshot returns a copy of the current status.
func (s *Store) Snapshot() models.PresenceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStatus(s.status)
}

// Subscribe returns a channel receiving the latest snapshot after each change. Slow readers
// only see the newest value. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan models.PresenceStatus, func()) {
	ch := make(chan models.PresenceStatus, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publishLocked() {
	for ch := range s.subs {
		snap := copyStatus(s.status)
		select {
		case ch <- snap:
		default:
			// Replace the stale value nobody read yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func copyStatus(status models.PresenceStatus) models.PresenceStatus {
	out := status
	if status.Icon != nil {
		icon := *status.Icon
		out.Icon = &icon
	}
	if status.Message != nil {
		msg := *status.Message
		out.Message = &msg
	}
	if status.ClearAt != nil {
		clearAt := *status.ClearAt
		out.ClearAt = &clearAt
	}
	return out
}
