package core

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/domain"
)

var (
	// ErrBadRoomName means the name lacks the reserved marker prefix.
	ErrBadRoomName = errors.New("room name must start with " + domain.RoomMarker)
	// ErrDefaultRoom means an attempt to leave the always-joined room.
	ErrDefaultRoom = errors.New("cannot leave the default room")
	// ErrNotMember means a leave for a room the connection is not in.
	ErrNotMember = errors.New("not a member of room")
)

// Rooms maps room name to member set. Membership is kept bidirectional with
// Session.Rooms; both sides are mutated together here and nowhere else.
type Rooms struct {
	defaultRoom domain.RoomName
	members     map[domain.RoomName]map[Conn]struct{}
}

func NewRooms(defaultRoom domain.RoomName) *Rooms {
	return &Rooms{
		defaultRoom: defaultRoom,
		members:     make(map[domain.RoomName]map[Conn]struct{}),
	}
}

// DefaultRoom is the always-joined, never-leavable channel.
func (r *Rooms) DefaultRoom() domain.RoomName {
	return r.defaultRoom
}

// Join adds the session to a room on both sides of the membership relation.
// Joining an already-joined room succeeds but reports changed=false.
func (r *Rooms) Join(sess *Session, room domain.RoomName) (changed bool, err error) {
	if !room.Valid() {
		return false, ErrBadRoomName
	}
	if sess.InRoom(room) {
		return false, nil
	}
	set := r.members[room]
	if set == nil {
		set = make(map[Conn]struct{})
		r.members[room] = set
	}
	set[sess.Conn] = struct{}{}
	sess.Rooms[room] = struct{}{}
	log.Debug().Str("module", "core.rooms").Int("call", int(sess.Call)).Str("room", string(room)).Int("members", len(set)).Msg("joined room")
	return true, nil
}

// Leave removes the session from a room. The default room is rejected
// unconditionally; a room becoming empty is deleted.
func (r *Rooms) Leave(sess *Session, room domain.RoomName) error {
	if room == r.defaultRoom {
		return ErrDefaultRoom
	}
	if !sess.InRoom(room) {
		return ErrNotMember
	}
	r.drop(sess, room)
	return nil
}

// DropAll removes the session from every room it belongs to, for
// disconnection teardown. Returns the rooms that were left.
func (r *Rooms) DropAll(sess *Session) []domain.RoomName {
	left := sess.RoomList()
	for _, room := range left {
		r.drop(sess, room)
	}
	return left
}

func (r *Rooms) drop(sess *Session, room domain.RoomName) {
	if set, ok := r.members[room]; ok {
		delete(set, sess.Conn)
		if len(set) == 0 {
			delete(r.members, room)
		}
	}
	delete(sess.Rooms, room)
	log.Debug().Str("module", "core.rooms").Int("call", int(sess.Call)).Str("room", string(room)).Msg("left room")
}

// Broadcast delivers a frame to every member of a room. An empty or unknown
// room is a silent no-op. Returns the number of successful sends.
func (r *Rooms) Broadcast(room domain.RoomName, f Frame) int {
	set, ok := r.members[room]
	if !ok {
		return 0
	}
	sent := 0
	for conn := range set {
		if err := conn.TrySend(f); err != nil {
			log.Warn().Str("module", "core.rooms").Str("room", string(room)).Err(err).Msg("dropped frame for slow member")
			continue
		}
		sent++
	}
	return sent
}

// MemberCount reports the size of a room's member set.
func (r *Rooms) MemberCount(room domain.RoomName) int {
	return len(r.members[room])
}

// Exists reports whether a room currently has an entry.
func (r *Rooms) Exists(room domain.RoomName) bool {
	_, ok := r.members[room]
	return ok
}
