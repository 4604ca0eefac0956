package domain

import "time"

// Session is the server-side record behind the opaque cookie value a
// client presents. It carries no principal reference itself; the binding
// lives on the principal so that clearing stale bindings is a single
// self-healing operation.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastAccessed time.Time
}

// IdleFor returns how long the session has been idle at the given time.
func (s Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastAccessed)
}
