package presence

import "time"

// Tracker derives the away flag from movement timestamps.
//
// Movement is rate limited on the leading edge: the first movement is accepted and further
// movements are ignored until debounce has passed since the last accepted one. The user
// becomes away once idleTimeout has passed since the last accepted movement. Before any
// movement was seen the user is never away.
type Tracker struct {
	idleTimeout time.Duration
	debounce    time.Duration

	away         bool
	seen         bool
	lastAccepted time.Time
}

func NewTracker(idleTimeout, debounce time.Duration) *Tracker {
	return &Tracker{
		idleTimeout: idleTimeout,
		debounce:    debounce,
	}
}

// Away reports the current away flag.
func (t *Tracker) Away() bool {
	return t.away
}

// Movement records movement at now. accepted is false when the movement fell inside the
// debounce window. resumed is true when the movement cleared the away flag.
func (t *Tracker) Movement(now time.Time) (accepted, resumed bool) {
	if t.seen && now.Sub(t.lastAccepted) < t.debounce {
		return false, false
	}

	t.seen = true
	t.lastAccepted = now
	resumed = t.away
	t.away = false
	return true, resumed
}

// IdleDeadline is when the user turns away if no further movement is accepted.
func (t *Tracker) IdleDeadline() (time.Time, bool) {
	if !t.seen {
		return time.Time{}, false
	}
	return t.lastAccepted.Add(t.idleTimeout), true
}

// Expire sets the away flag if the idle timeout has elapsed at now. It reports whether the
// flag changed.
func (t *Tracker) Expire(now time.Time) bool {
	if !t.seen || t.away {
		return false
	}
	if now.Sub(t.lastAccepted) < t.idleTimeout {
		return false
	}
	t.away = true
	return true
}
