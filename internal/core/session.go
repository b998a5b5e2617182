package core

import (
	"sort"

	"github.com/vibephone/switchboard/internal/domain"
)

// Session is the per-connection state held by the registry. The call id is
// assigned once and immutable for the connection's lifetime; the room set
// mirrors the Rooms member sets exactly.
type Session struct {
	Conn   Conn
	Call   domain.CallID
	Device domain.DeviceID
	Name   string
	Rooms  map[domain.RoomName]struct{}
}

// DisplayName falls back to User-<call> when no name was set.
func (s *Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Call.DefaultName()
}

// InRoom reports membership in a single room.
func (s *Session) InRoom(room domain.RoomName) bool {
	_, ok := s.Rooms[room]
	return ok
}

// RoomList returns the joined rooms in stable sorted order.
func (s *Session) RoomList() []domain.RoomName {
	out := make([]domain.RoomName, 0, len(s.Rooms))
	for r := range s.Rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
