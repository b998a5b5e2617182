package domain

import "strings"

type RoomName string

// RoomMarker is the reserved prefix every room name must carry.
const RoomMarker = "#"

// Valid reports whether the name is usable as a room: non-empty past the
// marker and marker-prefixed.
func (r RoomName) Valid() bool {
	return len(r) > len(RoomMarker) && strings.HasPrefix(string(r), RoomMarker)
}
