package switchboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/core"
	"github.com/vibephone/switchboard/internal/domain"
	"github.com/vibephone/switchboard/internal/protocol"
)

// handleOpen enters the Unidentified state and arms the grace timer. The
// timer only posts an event; state transitions happen in the loop.
func (e *Exchange) handleOpen(conn core.Conn) {
	e.pending[conn] = &pending{
		timer: time.AfterFunc(e.opts.Grace, func() {
			e.post(event{kind: evGraceExpired, conn: conn})
		}),
	}
}

// handleFrame validates the tag against the connection's state and
// dispatches. Anything unrecognized, malformed, or out of state is dropped
// without reply.
func (e *Exchange) handleFrame(conn core.Conn, data []byte) {
	tag, ok := protocol.Tag(data)
	if !ok {
		return
	}

	// App distribution frames are answered in any state, identification
	// not required.
	if tag.AppFrame() {
		if e.opts.Apps != nil {
			e.opts.Apps.HandleFrame(conn, tag, data)
		}
		return
	}

	sess := e.reg.ByConn(conn)
	if sess == nil {
		if tag == protocol.TIdentify {
			e.handleIdentify(conn, data)
		}
		return
	}

	switch tag {
	case protocol.TSetName:
		e.handleSetName(sess, data)
	case protocol.TJoin:
		e.handleJoin(sess, data)
	case protocol.TLeave:
		e.handleLeave(sess, data)
	case protocol.TChat:
		e.handleChat(sess, data)
	case protocol.TDM:
		e.handleDM(sess, data)
	}
}

// handleIdentify is transition (a): an explicit identify frame while still
// Unidentified. A connection that was never attached or already torn down
// has no pending entry and is ignored.
func (e *Exchange) handleIdentify(conn core.Conn, data []byte) {
	p, ok := e.pending[conn]
	if !ok {
		return
	}
	payload, ok := protocol.Decode[protocol.IdentifyPayload](data)
	if !ok {
		return
	}

	device := domain.CleanDeviceID(payload.DeviceID)
	call, temporary, err := e.assigner.Assign(device)
	if err != nil {
		// A mapping that silently failed to persist would hand out an id
		// that changes on restart. Fatal to this assignment: drop the
		// connection instead.
		log.Error().Str("module", "switchboard").Str("device", string(device)).Err(err).Msg("call assignment failed, closing connection")
		p.timer.Stop()
		delete(e.pending, conn)
		conn.Close()
		return
	}

	p.timer.Stop()
	delete(e.pending, conn)
	e.admit(conn, call, device, domain.CleanName(payload.Name), temporary)
}

// handleGraceExpired is transition (b): the fallback path for a connection
// that never identified. If the loop already processed an identify or a
// close, the pending entry is gone and this is a no-op.
func (e *Exchange) handleGraceExpired(conn core.Conn) {
	if _, ok := e.pending[conn]; !ok {
		return
	}
	delete(e.pending, conn)

	call, err := e.assigner.Ephemeral()
	if err != nil {
		log.Error().Str("module", "switchboard").Err(err).Msg("ephemeral mint failed")
		e.send(conn, protocol.IdentifyFail{T: protocol.TIdentifyFail, Error: err.Error()})
		conn.Close()
		return
	}
	e.admit(conn, call, "", "", true)
}

// admit completes the Unidentified→Identified transition: register the
// session, auto-join the default room, greet, announce, refresh presence.
func (e *Exchange) admit(conn core.Conn, call domain.CallID, device domain.DeviceID, name string, temporary bool) {
	// A reconnect can race its own stale socket: the device resolves to
	// the same call id while the old connection still lingers. The
	// newcomer wins; the stale holder is evicted so the call id stays
	// unique among live sessions.
	if old := e.reg.ByCall(call); old != nil && old != conn {
		if stale := e.reg.Unregister(old); stale != nil {
			e.rooms.DropAll(stale)
		}
		old.Close()
		log.Info().Str("module", "switchboard").Int("call", int(call)).Msg("evicted stale session for reconnecting call id")
	}

	sess, err := e.reg.Register(conn, call, device)
	if err != nil {
		log.Error().Str("module", "switchboard").Int("call", int(call)).Err(err).Msg("register failed")
		return
	}
	sess.Name = name

	if _, err := e.rooms.Join(sess, e.opts.DefaultRoom); err != nil {
		log.Error().Str("module", "switchboard").Str("room", string(e.opts.DefaultRoom)).Err(err).Msg("default room join failed")
	}

	e.send(conn, protocol.Hello{
		T:           protocol.THello,
		Call:        call,
		DefaultRoom: e.opts.DefaultRoom,
		ServerTime:  e.nowMs(),
		Temporary:   temporary,
	})
	e.systemNotice(e.opts.DefaultRoom, fmt.Sprintf("User %d joined.", call))
	e.broadcastDirectory()
	log.Info().Str("module", "switchboard").Int("call", int(call)).Bool("temporary", temporary).Msg("identified")
}

func (e *Exchange) handleSetName(sess *core.Session, data []byte) {
	payload, ok := protocol.Decode[protocol.SetNamePayload](data)
	if !ok {
		return
	}
	sess.Name = domain.CleanName(payload.Name)
	e.send(sess.Conn, protocol.NameOK{T: protocol.TNameOK, Name: sess.DisplayName()})
	e.broadcastDirectory()
}

func (e *Exchange) handleJoin(sess *core.Session, data []byte) {
	payload, ok := protocol.Decode[protocol.JoinPayload](data)
	if !ok {
		return
	}
	room := domain.RoomName(strings.TrimSpace(payload.Room))
	changed, err := e.rooms.Join(sess, room)
	if err != nil {
		return
	}
	e.send(sess.Conn, protocol.Joined{T: protocol.TJoined, Room: room})
	e.broadcastDirectory()
	if changed {
		e.systemNotice(room, fmt.Sprintf("User %d joined %s.", sess.Call, room))
	}
}

func (e *Exchange) handleLeave(sess *core.Session, data []byte) {
	payload, ok := protocol.Decode[protocol.LeavePayload](data)
	if !ok {
		return
	}
	room := domain.RoomName(strings.TrimSpace(payload.Room))
	if err := e.rooms.Leave(sess, room); err != nil {
		return
	}
	e.send(sess.Conn, protocol.Left{T: protocol.TLeft, Room: room})
	e.broadcastDirectory()
	e.systemNotice(room, fmt.Sprintf("User %d left %s.", sess.Call, room))
}

func (e *Exchange) handleChat(sess *core.Session, data []byte) {
	payload, ok := protocol.Decode[protocol.ChatPayload](data)
	if !ok {
		return
	}
	room := domain.RoomName(strings.TrimSpace(payload.Room))
	text := domain.CleanText(payload.Text)
	if !room.Valid() || text == "" || !sess.InRoom(room) {
		return
	}
	f, err := protocol.Encode(protocol.Chat{
		T:    protocol.TChat,
		Room: room,
		From: sess.Call,
		Name: sess.DisplayName(),
		Text: text,
		TS:   e.nowMs(),
	})
	if err != nil {
		log.Error().Str("module", "switchboard").Err(err).Msg("encode chat")
		return
	}
	e.rooms.Broadcast(room, f)
}

// handleDM delivers to the sender and, when live, the targeted call id.
// An offline target silently drops; no error frame goes back.
func (e *Exchange) handleDM(sess *core.Session, data []byte) {
	payload, ok := protocol.Decode[protocol.DMPayload](data)
	if !ok {
		return
	}
	text := domain.CleanText(payload.Text)
	if text == "" || payload.To <= 0 {
		return
	}
	to := domain.CallID(payload.To)
	f, err := protocol.Encode(protocol.DM{
		T:    protocol.TDM,
		From: sess.Call,
		To:   to,
		Name: sess.DisplayName(),
		Text: text,
		TS:   e.nowMs(),
	})
	if err != nil {
		log.Error().Str("module", "switchboard").Err(err).Msg("encode dm")
		return
	}
	e.trySend(sess.Conn, f)
	if target := e.reg.ByCall(to); target != nil && target != sess.Conn {
		e.trySend(target, f)
	}
}

// handleClose tears down in either state: cancel a pending grace timer, or
// unregister the session, drop all room memberships, announce, refresh.
func (e *Exchange) handleClose(conn core.Conn) {
	if p, ok := e.pending[conn]; ok {
		p.timer.Stop()
		delete(e.pending, conn)
		return
	}
	sess := e.reg.Unregister(conn)
	if sess == nil {
		return
	}
	e.rooms.DropAll(sess)
	e.systemNotice(e.opts.DefaultRoom, fmt.Sprintf("User %d disconnected.", sess.Call))
	e.broadcastDirectory()
}

// broadcastDirectory computes one snapshot and pushes it to every live
// connection. Called after any identification, rename, join, leave, or
// disconnect.
func (e *Exchange) broadcastDirectory() {
	f, err := protocol.Encode(protocol.Directory{T: protocol.TDirectory, Users: e.dir.Snapshot()})
	if err != nil {
		log.Error().Str("module", "switchboard").Err(err).Msg("encode directory")
		return
	}
	e.dir.Fanout(f)
}

func (e *Exchange) systemNotice(room domain.RoomName, text string) {
	f, err := protocol.Encode(protocol.System{T: protocol.TSystem, Room: room, Text: text, TS: e.nowMs()})
	if err != nil {
		log.Error().Str("module", "switchboard").Err(err).Msg("encode system notice")
		return
	}
	e.rooms.Broadcast(room, f)
}

func (e *Exchange) send(conn core.Conn, v any) {
	f, err := protocol.Encode(v)
	if err != nil {
		log.Error().Str("module", "switchboard").Err(err).Msg("encode frame")
		return
	}
	e.trySend(conn, f)
}

func (e *Exchange) trySend(conn core.Conn, f core.Frame) {
	if err := conn.TrySend(f); err != nil {
		log.Warn().Str("module", "switchboard").Err(err).Msg("dropped frame for slow connection")
	}
}
