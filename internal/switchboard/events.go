package switchboard

import "github.com/vibephone/switchboard/internal/core"

type eventKind int

const (
	evOpen eventKind = iota
	evFrame
	evGraceExpired
	evClose
)

// event is one unit of work for the exchange loop. Frames from a single
// connection arrive in read order; nothing is ordered across connections.
type event struct {
	kind eventKind
	conn core.Conn
	data []byte
}
