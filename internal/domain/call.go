package domain

import "fmt"

// CallID is the stable numeric identity assigned to a device, analogous to
// a phone number. Persisted ids are drawn from a monotonic counter starting
// at 1000; ephemeral ids live in a disjoint high range.
type CallID int

const (
	// EphemeralBase is the floor of the range used for connections that
	// never present a device id. The persisted counter never reaches it.
	EphemeralBase = 900000
	// EphemeralSpan is the width of the ephemeral range.
	EphemeralSpan = 90000
)

// Ephemeral reports whether the id was minted outside the persisted counter.
func (c CallID) Ephemeral() bool {
	return c >= EphemeralBase
}

// DefaultName is the display name used when a session never set one.
func (c CallID) DefaultName() string {
	return fmt.Sprintf("User-%d", c)
}
