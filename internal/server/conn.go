package server

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/protocol"
)

// State is a connection's position in the sync state machine.
type State uint8

const (
	// StateConnecting is a connection that has not been sent a Refresh yet.
	StateConnecting State = iota
	// StateSynced receives every patch.
	StateSynced
	// StateStale is skipped by broadcasts until it is refreshed.
	StateStale
	// StateDisconnected is removed from the hub.
	StateDisconnected
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSynced:
		return "synced"
	case StateStale:
		return "stale"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// conn is one websocket client.
type conn struct {
	id          uuid.UUID
	granularity diff.Granularity
	remote      string
	connectedAt time.Time

	ws     *websocket.Conn
	hub    *Hub
	logger *slog.Logger

	// send is the outbound FIFO. Only the hub enqueues, under hub.mu.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Guarded by hub.mu.
	state    State
	revision uint64

	stale     atomic.Bool
	bytesSent atomic.Uint64
	msgsSent  atomic.Uint64
}

func newConn(h *Hub, ws *websocket.Conn, g diff.Granularity, remote string) *conn {
	id := uuid.New()
	return &conn{
		id:          id,
		granularity: g,
		remote:      remote,
		connectedAt: time.Now(),
		ws:          ws,
		hub:         h,
		logger:      h.logger.With("conn", id.String(), "granularity", g.String()),
		send:        make(chan []byte, h.cfg.QueueSize),
		done:        make(chan struct{}),
		state:       StateConnecting,
	}
}

// enqueue adds msg to the outbound queue without blocking.
// It reports false when the queue is full.
func (c *conn) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the writer. It is safe to call more than once.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writeLoop drains the outbound queue in order. It is the only goroutine
// that writes data frames to the socket.
func (c *conn) writeLoop() {
	ping := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ping.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
			if c.stale.Load() && len(c.send) == 0 {
				c.hub.resync(c)
			}

		case <-ping.C:
			deadline := time.Now().Add(c.hub.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}

		case <-c.done:
			deadline := time.Now().Add(c.hub.cfg.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
			return
		}
	}
}

func (c *conn) write(msg []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		return err
	}
	c.bytesSent.Add(uint64(len(msg)))
	c.msgsSent.Add(1)
	return nil
}

// readLoop handles client messages until the socket fails or closes.
func (c *conn) readLoop() {
	pongWait := c.hub.cfg.PingInterval * 2
	c.ws.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := protocol.DecodeClient(data)
		if err != nil {
			c.hub.metrics.clientMessages.WithLabelValues(clientResult(err)).Inc()
			c.logger.Debug("ignoring client message", "error", err)
			continue
		}

		switch msg.(type) {
		case protocol.RequestRefresh:
			c.hub.metrics.clientMessages.WithLabelValues("request_refresh").Inc()
			c.hub.refresh(c, reasonRequest)
		}
	}
}

func clientResult(err error) string {
	if errors.Is(err, protocol.ErrUnknownTag) {
		return "unknown_tag"
	}
	return "malformed"
}
