package identity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibephone/switchboard/internal/domain"
)

func noneLive(domain.CallID) bool { return false }

func TestEphemeralRange(t *testing.T) {
	a := NewAssigner(Open(filepath.Join(t.TempDir(), "calls.json")), noneLive)

	for i := 0; i < 100; i++ {
		call, err := a.Ephemeral()
		require.NoError(t, err)
		assert.True(t, call.Ephemeral())
		assert.GreaterOrEqual(t, int(call), domain.EphemeralBase)
		assert.Less(t, int(call), domain.EphemeralBase+domain.EphemeralSpan)
	}
}

func TestEphemeralAvoidsLiveIDs(t *testing.T) {
	blocked := domain.CallID(domain.EphemeralBase + 7)
	a := NewAssigner(Open(filepath.Join(t.TempDir(), "calls.json")), func(c domain.CallID) bool {
		return c == blocked
	})
	// Force the first pick onto the live id; the minter must retry past it.
	calls := 0
	a.pick = func() domain.CallID {
		calls++
		if calls == 1 {
			return blocked
		}
		return blocked + 1
	}

	call, err := a.Ephemeral()
	require.NoError(t, err)
	assert.Equal(t, blocked+1, call)
}

func TestEphemeralExhaustion(t *testing.T) {
	a := NewAssigner(Open(filepath.Join(t.TempDir(), "calls.json")), func(domain.CallID) bool {
		return true
	})

	_, err := a.Ephemeral()
	assert.ErrorIs(t, err, ErrEphemeralExhausted)
}

func TestAssignEmptyDeviceGoesEphemeral(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "calls.json"))
	a := NewAssigner(store, noneLive)

	call, temporary, err := a.Assign("")
	require.NoError(t, err)
	assert.True(t, temporary)
	assert.True(t, call.Ephemeral())
	assert.Equal(t, domain.CallID(DefaultNextCall), store.NextCall(), "ephemeral ids must not touch the counter")
}

func TestAssignKnownDeviceIsPermanent(t *testing.T) {
	a := NewAssigner(Open(filepath.Join(t.TempDir(), "calls.json")), noneLive)

	call, temporary, err := a.Assign("pc-1")
	require.NoError(t, err)
	assert.False(t, temporary)
	assert.False(t, call.Ephemeral())
}
