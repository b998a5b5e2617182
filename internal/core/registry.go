// Package core holds the in-memory session, room, and presence state.
// Everything here is mutated by the single exchange goroutine only, so the
// types carry no locks of their own.
package core

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/domain"
)

// ErrDuplicateConnection means the connection already has a live session.
var ErrDuplicateConnection = errors.New("connection already registered")

// Registry is the bookkeeping of live connections: connection handle to
// session, and the call-id index used for targeted delivery.
type Registry struct {
	sessions map[Conn]*Session
	byCall   map[domain.CallID]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[Conn]*Session),
		byCall:   make(map[domain.CallID]Conn),
	}
}

// Register creates the session for a newly identified connection.
func (r *Registry) Register(conn Conn, call domain.CallID, device domain.DeviceID) (*Session, error) {
	if _, ok := r.sessions[conn]; ok {
		return nil, ErrDuplicateConnection
	}
	sess := &Session{
		Conn:   conn,
		Call:   call,
		Device: device,
		Rooms:  make(map[domain.RoomName]struct{}),
	}
	r.sessions[conn] = sess
	r.byCall[call] = conn
	log.Info().Str("module", "core.registry").Int("call", int(call)).Int("live", len(r.sessions)).Msg("session registered")
	return sess, nil
}

// Unregister drops the session and frees its call id. It is idempotent:
// close events can race explicit teardown, so an unknown connection is a
// no-op returning nil. Room membership cleanup is the caller's job via
// Rooms.DropAll before the session is discarded.
func (r *Registry) Unregister(conn Conn) *Session {
	sess, ok := r.sessions[conn]
	if !ok {
		return nil
	}
	delete(r.sessions, conn)
	delete(r.byCall, sess.Call)
	log.Info().Str("module", "core.registry").Int("call", int(sess.Call)).Int("live", len(r.sessions)).Msg("session unregistered")
	return sess
}

// ByConn returns the session for a connection, nil when unidentified.
func (r *Registry) ByConn(conn Conn) *Session {
	return r.sessions[conn]
}

// ByCall returns the live connection currently holding a call id.
func (r *Registry) ByCall(call domain.CallID) Conn {
	return r.byCall[call]
}

// Live reports whether a call id is currently held by a connection.
func (r *Registry) Live(call domain.CallID) bool {
	_, ok := r.byCall[call]
	return ok
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Each visits every live session in unspecified order.
func (r *Registry) Each(fn func(*Session)) {
	for _, sess := range r.sessions {
		fn(sess)
	}
}
