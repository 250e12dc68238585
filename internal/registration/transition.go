package registration

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition reports a status change the workflow forbids.
	ErrInvalidTransition = errors.New("registration: invalid status transition")

	// ErrStatusUnchanged reports a transition to the status already held.
	ErrStatusUnchanged = errors.New("registration: status unchanged")
)

// Effect names a side effect the caller must apply to complete a transition.
type Effect string

const (
	// EffectGenerateKey issues a fresh activation key for the profile.
	EffectGenerateKey Effect = "generate_key"
	// EffectClearKey removes the stored activation key.
	EffectClearKey Effect = "clear_key"
	// EffectStampJoinTime resets the account join time so the activation
	// window counts from the moment of acceptance, not registration.
	EffectStampJoinTime Effect = "stamp_join_time"
)

// State is the transition-relevant slice of a registration profile. An empty
// ActivationKey means no key is held.
type State struct {
	Status        Status
	ActivationKey string
}

// allowed lists the transitions permitted without force. A rejected profile
// may still be accepted later so an inspector can revisit a mistaken call.
var allowed = map[Status]map[Status]struct{}{
	StatusUntreated: {
		StatusAccepted: {},
		StatusRejected: {},
	},
	StatusRejected: {
		StatusAccepted: {},
	},
	StatusAccepted: {},
}

// CanTransition reports whether from may move to target without force.
func CanTransition(from, target Status) bool {
	targets, ok := allowed[from]
	if !ok {
		return false
	}
	_, ok = targets[target]
	return ok
}

// Transition computes the state after moving cur to target, together with the
// side effects the caller must apply in order.
//
// Without force, a move to the current status returns ErrStatusUnchanged and
// a move the workflow forbids returns ErrInvalidTransition. Force bypasses
// both checks, and forcing acceptance discards any held key so that a fresh
// one is generated.
//
// A key is generated only when the profile becomes accepted without holding
// one; the same moment restarts the activation window. Moving away from
// accepted clears the key. The generated key value is the caller's to fill
// in, so the returned state carries an empty ActivationKey alongside
// EffectGenerateKey.
func Transition(cur State, target Status, force bool) (State, []Effect, error) {
	if !target.Persistable() {
		return cur, nil, fmt.Errorf("%w: %q cannot be stored", ErrInvalidTransition, target)
	}

	if !force {
		if cur.Status == target {
			return cur, nil, ErrStatusUnchanged
		}
		if !CanTransition(cur.Status, target) {
			return cur, nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, cur.Status, target)
		}
	}

	next := State{Status: target, ActivationKey: cur.ActivationKey}
	var effects []Effect

	if force && target == StatusAccepted && next.ActivationKey != "" {
		next.ActivationKey = ""
		effects = append(effects, EffectClearKey)
	}

	switch {
	case target == StatusAccepted && next.ActivationKey == "":
		effects = append(effects, EffectGenerateKey, EffectStampJoinTime)
	case target != StatusAccepted && next.ActivationKey != "":
		next.ActivationKey = ""
		effects = append(effects, EffectClearKey)
	}

	return next, effects, nil
}
