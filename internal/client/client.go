package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/pretty"

	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/protocol"
)

// DefaultHandshakeTimeout bounds the websocket handshake.
const DefaultHandshakeTimeout = 10 * time.Second

const writeTimeout = 10 * time.Second

// Config holds the client settings.
type Config struct {
	// URL is the server's websocket endpoint, e.g. ws://127.0.0.1:8080/sync.
	URL string

	// Granularity is requested at connect time and fixed per connection.
	Granularity diff.Granularity

	Backoff BackoffConfig

	// FrameInterval delays redraws so bursts of patches draw once.
	FrameInterval time.Duration

	HandshakeTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebugDump writes every received message to w as indented JSON,
// colorized if color is set.
func WithDebugDump(w io.Writer, color bool) Option {
	return func(c *Client) {
		c.dump = w
		c.dumpColor = color
	}
}

// WithReload sets a function called after the mirror has been discarded
// because of a version skew or a failed apply or render.
func WithReload(fn func()) Option {
	return func(c *Client) {
		c.onReload = fn
	}
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// Client mirrors a sync server's state and renders it.
type Client struct {
	url      string
	cfg      Config
	renderer Renderer
	logger   *slog.Logger
	dialer   *websocket.Dialer

	dump      io.Writer
	dumpColor bool
	onReload  func()

	// Owned by the Run goroutine.
	mirror  *Mirror
	backoff *Backoff
	sched   *Scheduler

	connects atomic.Uint64
	reloads  atomic.Uint64
}

// New creates a client. The granularity is added to the URL's query.
func New(cfg Config, renderer Renderer, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("client: parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("client: url scheme %q, want ws or wss", u.Scheme)
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}

	c := &Client{
		url:      protocol.WithGranularity(u, cfg.Granularity).String(),
		cfg:      cfg,
		renderer: renderer,
		logger:   slog.Default(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.mirror = NewMirror(cfg.Granularity, c.logger)
	c.backoff = NewBackoff(cfg.Backoff)
	c.sched = NewScheduler(cfg.FrameInterval)
	return c, nil
}

// URL returns the URL the client dials.
func (c *Client) URL() string {
	return c.url
}

// Connects returns the number of successful connections.
func (c *Client) Connects() uint64 {
	return c.connects.Load()
}

// Reloads returns the number of times the mirror was discarded.
func (c *Client) Reloads() uint64 {
	return c.reloads.Load()
}

// Run connects and mirrors until ctx is done, reconnecting with backoff
// after every closed or failed connection. It returns ctx's error.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errors.Is(err, ErrReload) {
			// Waiting the full interval bounds restart storms.
			wait := c.backoff.Max()
			c.logger.Warn("reloading", "error", err, "in", wait)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			c.reload()
			continue
		}

		wait := c.backoff.Next()
		c.logger.Info("connection closed", "error", err, "retry_in", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// session runs one connection. It is the only goroutine that touches the
// mirror, writes to the socket or renders.
func (c *Client) session(ctx context.Context) error {
	c.mirror.Connecting()

	ws, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.disconnected()
		return fmt.Errorf("%w: dial: %w", ErrTransport, err)
	}

	c.backoff.Reset()
	c.connects.Add(1)
	c.logger.Info("connected", "url", c.url)

	defer func() {
		_ = ws.Close()
		c.sched.Cancel()
		c.disconnected()
	}()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case data := <-frames:
			if err := c.receive(ws, data); err != nil {
				return err
			}

		case <-c.sched.C():
			c.sched.Done()
			if err := safeRender(c.renderer, c.mirror.View()); err != nil {
				return fmt.Errorf("%w: %w", ErrReload, err)
			}

		case err := <-readErr:
			return fmt.Errorf("%w: read: %w", ErrTransport, err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// receive handles one server message.
func (c *Client) receive(ws *websocket.Conn, data []byte) error {
	if c.dump != nil {
		c.dumpMessage(data)
	}

	var (
		action Action
		err    error
	)
	msg, decodeErr := protocol.DecodeServer(data)
	switch {
	case decodeErr == nil:
		action, err = c.handle(msg)
	case errors.Is(decodeErr, diff.ErrMalformedPatch):
		action, err = c.mirror.Reject(decodeErr)
	default:
		c.logger.Warn("ignoring message", "error", decodeErr, "bytes", len(data))
		return nil
	}

	switch action {
	case ActionRender:
		c.sched.Request()

	case ActionRequestRefresh:
		c.logger.Info("requesting refresh", "reason", err)
		if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
		if err := ws.WriteMessage(websocket.TextMessage, protocol.Encode(protocol.RequestRefresh{})); err != nil {
			return fmt.Errorf("%w: write: %w", ErrTransport, err)
		}

	case ActionReload:
		return fmt.Errorf("%w: %w", ErrReload, err)

	case ActionNone:
		if err != nil {
			c.logger.Warn("dropping message", "error", err)
		}
	}
	return nil
}

// handle applies msg to the mirror and converts a panic into a reload.
func (c *Client) handle(msg protocol.Message) (action Action, err error) {
	defer func() {
		if p := recover(); p != nil {
			action, err = ActionReload, fmt.Errorf("apply panic: %v", p)
		}
	}()
	return c.mirror.Handle(msg)
}

// disconnected records the lost connection and draws it at once.
func (c *Client) disconnected() {
	c.mirror.Disconnected()
	if err := safeRender(c.renderer, c.mirror.View()); err != nil {
		c.logger.Warn("render failed", "error", err)
	}
}

// reload discards the mirror, including the recorded build identifier.
func (c *Client) reload() {
	c.mirror = NewMirror(c.cfg.Granularity, c.logger)
	c.backoff.Reset()
	c.reloads.Add(1)
	if c.onReload != nil {
		c.onReload()
	}
}

func (c *Client) dumpMessage(data []byte) {
	out := pretty.Pretty(data)
	if c.dumpColor {
		out = pretty.Color(out, pretty.TerminalStyle)
	}
	_, _ = c.dump.Write(out)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
