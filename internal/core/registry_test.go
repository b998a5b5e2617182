package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibephone/switchboard/internal/domain"
)

// fakeConn collects frames for assertions.
type fakeConn struct {
	frames []Frame
	closed bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{}

	sess, err := reg.Register(conn, 1000, "pc-a")
	require.NoError(t, err)
	assert.Equal(t, domain.CallID(1000), sess.Call)

	assert.Same(t, sess, reg.ByConn(conn))
	assert.Equal(t, Conn(conn), reg.ByCall(1000))
	assert.True(t, reg.Live(1000))
	assert.Equal(t, 1, reg.Len())
}

func TestRegisterDuplicateConnection(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{}

	_, err := reg.Register(conn, 1000, "pc-a")
	require.NoError(t, err)

	_, err = reg.Register(conn, 1001, "pc-b")
	assert.ErrorIs(t, err, ErrDuplicateConnection)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{}

	sess, err := reg.Register(conn, 1000, "pc-a")
	require.NoError(t, err)

	assert.Same(t, sess, reg.Unregister(conn))
	assert.Nil(t, reg.Unregister(conn), "second unregister is a no-op")
	assert.Nil(t, reg.Unregister(&fakeConn{}), "unknown connection is a no-op")

	assert.False(t, reg.Live(1000))
	assert.Equal(t, 0, reg.Len())
}

func TestDisplayNameFallback(t *testing.T) {
	sess := &Session{Call: 1042, Rooms: map[domain.RoomName]struct{}{}}
	assert.Equal(t, "User-1042", sess.DisplayName())

	sess.Name = "alice"
	assert.Equal(t, "alice", sess.DisplayName())
}
