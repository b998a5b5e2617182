// Package switchboard implements the per-connection protocol state machine
// and the single event loop that owns all shared state. Every inbound
// frame, grace-timer expiry, and close is handled to completion before the
// next, for the whole server, so the registry, rooms, and identity store
// need no locks. Outbound delivery goes through non-blocking per-connection
// buffers, so a slow socket never stalls the loop.
package switchboard

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/appstore"
	"github.com/vibephone/switchboard/internal/core"
	"github.com/vibephone/switchboard/internal/domain"
	"github.com/vibephone/switchboard/internal/identity"
)

// DefaultGrace is how long an unidentified connection may sit before the
// fallback path assigns it an ephemeral id.
const DefaultGrace = 5 * time.Second

// Options configures an Exchange.
type Options struct {
	DefaultRoom domain.RoomName
	Grace       time.Duration
	// Apps handles the pre-identify app distribution frames; nil disables
	// them.
	Apps *appstore.Store
}

// pending tracks a connection that is open but not yet identified. The
// timer posts back into the loop rather than mutating state itself, which
// keeps the identify-vs-timeout race single-writer: whichever event the
// loop sees first wins and the other finds nothing to do.
type pending struct {
	timer *time.Timer
}

// Exchange owns the connection registry, room manager, and directory, and
// routes frames between them.
type Exchange struct {
	opts     Options
	reg      *core.Registry
	rooms    *core.Rooms
	dir      *core.Directory
	assigner *identity.Assigner

	events  chan event
	done    chan struct{}
	pending map[core.Conn]*pending

	now func() time.Time
}

// New wires an exchange around an identity store. The registry is owned
// here and never escapes; the ephemeral minter consults it for liveness.
func New(store *identity.Store, opts Options) *Exchange {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = "#lobby"
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	reg := core.NewRegistry()
	e := &Exchange{
		opts:    opts,
		reg:     reg,
		rooms:   core.NewRooms(opts.DefaultRoom),
		dir:     core.NewDirectory(reg),
		events:  make(chan event, 256),
		done:    make(chan struct{}),
		pending: make(map[core.Conn]*pending),
		now:     time.Now,
	}
	e.assigner = identity.NewAssigner(store, reg.Live)
	return e
}

// Run consumes events until the context is cancelled. It must be running
// before connections are attached.
func (e *Exchange) Run(ctx context.Context) {
	defer close(e.done)
	log.Info().Str("module", "switchboard").Str("default_room", string(e.opts.DefaultRoom)).Dur("grace", e.opts.Grace).Msg("exchange running")
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case ev := <-e.events:
			e.dispatch(ev)
		}
	}
}

// Connect attaches a new connection in the Unidentified state.
func (e *Exchange) Connect(conn core.Conn) {
	e.post(event{kind: evOpen, conn: conn})
}

// Receive hands one inbound frame to the loop.
func (e *Exchange) Receive(conn core.Conn, data []byte) {
	e.post(event{kind: evFrame, conn: conn, data: data})
}

// Disconnect runs teardown for a closed connection. Safe to call even if
// identification never completed, and idempotent against racing closes.
func (e *Exchange) Disconnect(conn core.Conn) {
	e.post(event{kind: evClose, conn: conn})
}

func (e *Exchange) post(ev event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

func (e *Exchange) dispatch(ev event) {
	switch ev.kind {
	case evOpen:
		e.handleOpen(ev.conn)
	case evFrame:
		e.handleFrame(ev.conn, ev.data)
	case evGraceExpired:
		e.handleGraceExpired(ev.conn)
	case evClose:
		e.handleClose(ev.conn)
	}
}

func (e *Exchange) shutdown() {
	for conn, p := range e.pending {
		p.timer.Stop()
		delete(e.pending, conn)
		conn.Close()
	}
	e.reg.Each(func(sess *core.Session) {
		sess.Conn.Close()
	})
	log.Info().Str("module", "switchboard").Msg("exchange stopped")
}

func (e *Exchange) nowMs() int64 {
	return e.now().UnixMilli()
}
