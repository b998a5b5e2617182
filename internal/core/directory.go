package core

import (
	"sort"

	"github.com/vibephone/switchboard/internal/domain"
)

// Presence is one directory entry: who holds a call id and where they are.
type Presence struct {
	Call   domain.CallID     `json:"call"`
	Name   string            `json:"name"`
	Rooms  []domain.RoomName `json:"rooms"`
	Online bool              `json:"online"`
}

// Directory derives presence snapshots from the registry. It holds no state
// and no timers; callers trigger fanout after every presence change.
type Directory struct {
	reg *Registry
}

func NewDirectory(reg *Registry) *Directory {
	return &Directory{reg: reg}
}

// Snapshot lists every live session ascending by call id. The slice is
// freshly built on each call, never mutated in place.
func (d *Directory) Snapshot() []Presence {
	out := make([]Presence, 0, d.reg.Len())
	d.reg.Each(func(sess *Session) {
		out = append(out, Presence{
			Call:   sess.Call,
			Name:   sess.DisplayName(),
			Rooms:  sess.RoomList(),
			Online: true,
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Call < out[j].Call })
	return out
}

// Fanout delivers one pre-encoded frame to every live connection.
func (d *Directory) Fanout(f Frame) int {
	sent := 0
	d.reg.Each(func(sess *Session) {
		if sess.Conn.TrySend(f) == nil {
			sent++
		}
	})
	return sent
}
