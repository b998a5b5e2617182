package identity

import (
	"errors"
	"math/rand"

	"github.com/vibephone/switchboard/internal/domain"
)

// ErrEphemeralExhausted means no free ephemeral id could be found; with a
// 90000-wide range this only happens when the predicate is broken.
var ErrEphemeralExhausted = errors.New("ephemeral id space exhausted")

const mintAttempts = 64

// Assigner wraps the store with the fallback path for connections that
// present no device id before the grace timer expires. The live predicate
// is consulted so an ephemeral id never collides with a currently held one.
type Assigner struct {
	store *Store
	live  func(domain.CallID) bool
	pick  func() domain.CallID
}

func NewAssigner(store *Store, live func(domain.CallID) bool) *Assigner {
	return &Assigner{
		store: store,
		live:  live,
		pick: func() domain.CallID {
			return domain.CallID(domain.EphemeralBase + rand.Intn(domain.EphemeralSpan))
		},
	}
}

// Assign resolves a call id for the given device, routing an absent device
// id through the ephemeral path.
func (a *Assigner) Assign(device domain.DeviceID) (domain.CallID, bool, error) {
	if device == "" {
		call, err := a.Ephemeral()
		return call, true, err
	}
	call, err := a.store.Assign(device)
	return call, false, err
}

// Ephemeral mints a non-persisted id in the high range, retrying until it
// finds one no live connection holds.
func (a *Assigner) Ephemeral() (domain.CallID, error) {
	for i := 0; i < mintAttempts; i++ {
		call := a.pick()
		if !a.live(call) {
			return call, nil
		}
	}
	return 0, ErrEphemeralExhausted
}
