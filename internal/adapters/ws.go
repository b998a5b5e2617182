// Package adapters binds transports to the exchange: the websocket
// endpoint with its read/write pumps, and the per-connection rate limit.
package adapters

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/core"
	"github.com/vibephone/switchboard/internal/switchboard"
)

var (
	// ErrBackpressure means a connection's send buffer is full; the frame
	// is dropped rather than blocking the exchange loop.
	ErrBackpressure = errors.New("backpressure")
	// ErrClosed means the connection was already torn down.
	ErrClosed = errors.New("connection closed")
)

const writeDeadline = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSOptions tunes the transport; zero values mean defaults.
type WSOptions struct {
	ReadLimit  int64
	SendBuffer int
	// RateLimit frames per RateWindow; zero disables the limit.
	RateLimit  int
	RateWindow time.Duration
}

// WSController upgrades HTTP requests and drives connections against the
// exchange.
type WSController struct {
	Exchange *switchboard.Exchange
	Opts     WSOptions
}

// wsConn implements core.Conn over a gorilla websocket. TrySend never
// blocks; the write pump drains the buffer. The closed flag keeps a
// late TrySend from racing Close: queued exchange events can still name
// this connection after the read pump exited.
type wsConn struct {
	conn   *websocket.Conn
	send   chan core.Frame
	mu     sync.Mutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// HandleWS is the gin handler for the realtime endpoint.
func (ctl *WSController) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("upgrade failed")
		return
	}
	if ctl.Opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Opts.ReadLimit)
	}

	buf := ctl.Opts.SendBuffer
	if buf <= 0 {
		buf = 64
	}
	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, buf),
	}
	log.Info().Str("module", "adapters.ws").Str("remote", ws.RemoteAddr().String()).Str("client_token", c.GetString("client_token")).Msg("connection open")

	ctl.Exchange.Connect(conn)
	go ctl.writePump(conn)
	go ctl.readPump(conn)
}

// writePump drains the send buffer. A write failure closes the connection
// so teardown does not wait for the read side to notice the dead socket.
func (ctl *WSController) writePump(c *wsConn) {
	defer c.Close()
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Str("module", "adapters.ws").Err(err).Msg("write failed")
			return
		}
	}
}

// readPump forwards frames into the exchange in read order. On exit the
// exchange runs teardown; Disconnect is idempotent against racing closes.
func (ctl *WSController) readPump(c *wsConn) {
	defer func() {
		ctl.Exchange.Disconnect(c)
		c.Close()
		log.Info().Str("module", "adapters.ws").Str("remote", c.conn.RemoteAddr().String()).Msg("connection closed")
	}()

	limiter := NewFrameLimiter(ctl.Opts.RateLimit, ctl.Opts.RateWindow)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			log.Warn().Str("module", "adapters.ws").Str("remote", c.conn.RemoteAddr().String()).Msg("rate limit exceeded, frame dropped")
			continue
		}
		ctl.Exchange.Receive(c, data)
	}
}
