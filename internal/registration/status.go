// Package registration implements the inspected registration workflow's
// state machine.
//
// A profile's stored status is one of untreated, accepted or rejected.
// Expiration is never stored: an accepted profile whose activation window has
// elapsed reads as expired whenever the status is resolved. Transitions are
// pure functions that report the side effects the caller must apply, so the
// persistence layer stays out of the decision logic.
package registration

import "time"

// Status is the inspection status of a registration profile.
type Status string

const (
	// StatusUntreated marks a profile no inspector has acted on yet.
	StatusUntreated Status = "untreated"
	// StatusAccepted marks a profile cleared for activation.
	StatusAccepted Status = "accepted"
	// StatusRejected marks a profile an inspector declined.
	StatusRejected Status = "rejected"

	// StatusExpired is derived from StatusAccepted once the activation
	// window elapses. It is never written to storage.
	StatusExpired Status = "expired"
)

func (s Status) String() string { return string(s) }

// Persistable reports whether s may be written to storage.
func (s Status) Persistable() bool {
	switch s {
	case StatusUntreated, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is a known status, including the derived expired.
func (s Status) Valid() bool {
	return s.Persistable() || s == StatusExpired
}

// KeyExpired reports whether an activation key issued at acceptance is no
// longer usable. Only accepted profiles expire; the key becomes unusable the
// moment joinedAt plus window is reached.
func KeyExpired(stored Status, joinedAt time.Time, window time.Duration, now time.Time) bool {
	if stored != StatusAccepted {
		return false
	}
	return !joinedAt.Add(window).After(now)
}

// EffectiveStatus resolves the status visible to callers. An accepted profile
// whose activation window elapsed reads as expired; every other status is
// returned as stored.
func EffectiveStatus(stored Status, joinedAt time.Time, window time.Duration, now time.Time) Status {
	if KeyExpired(stored, joinedAt, window, now) {
		return StatusExpired
	}
	return stored
}
