package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/engine/tracking"
	"github.com/dshills/ropesync/internal/protocol"
)

// ErrHubClosed is returned when connecting to a hub after Shutdown.
var ErrHubClosed = errors.New("server: hub closed")

var granularities = [...]diff.Granularity{diff.Char, diff.Line}

// prepared is the ledger artifact for one publish: the encoded patch for
// each granularity that had synced connections when it was computed.
type prepared struct {
	data    [len(granularities)][]byte
	summary [len(granularities)]diff.Summary
}

// Hub broadcasts ledger commits to websocket clients.
type Hub struct {
	ledger   *tracking.Ledger
	cfg      Config
	differ   *diff.Differ
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[uuid.UUID]*conn
	closed bool

	// synced counts Synced connections per granularity so prepare only
	// computes patches someone will receive.
	synced [len(granularities)]atomic.Int64

	stopObserving func()
	wg            sync.WaitGroup
}

// NewHub attaches a hub to ledger. The hub installs the ledger's
// PrepareFunc and observes its commits until Shutdown.
func NewHub(ledger *tracking.Ledger, cfg Config, opts ...Option) *Hub {
	h := &Hub{
		ledger: ledger,
		cfg:    cfg.withDefaults(),
		differ: diff.New(diff.DefaultOptions()),
		logger: slog.Default(),
		conns:  make(map[uuid.UUID]*conn),
	}

	for _, opt := range opts {
		opt(h)
	}

	h.metrics = newMetrics(h.registry)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}

	ledger.SetPrepare(h.prepare)
	h.stopObserving = ledger.Observe(tracking.CommitObserverFunc(h.onCommit))
	return h
}

// Build returns the build identifier sent in every Refresh.
func (h *Hub) Build() string {
	return h.cfg.Build
}

// ConnInfo describes one connection.
type ConnInfo struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	Granularity string    `json:"granularity"`
	Remote      string    `json:"remote"`
	Revision    uint64    `json:"revision"`
	ConnectedAt time.Time `json:"connected_at"`
	Messages    uint64    `json:"messages"`
	Sent        string    `json:"sent"`
	Queued      int       `json:"queued"`
}

// Connections returns a description of every open connection, oldest first.
func (h *Hub) Connections() []ConnInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]ConnInfo, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, ConnInfo{
			ID:          c.id.String(),
			State:       c.state.String(),
			Granularity: c.granularity.String(),
			Remote:      c.remote,
			Revision:    c.revision,
			ConnectedAt: c.connectedAt,
			Messages:    c.msgsSent.Load(),
			Sent:        humanize.Bytes(c.bytesSent.Load()),
			Queued:      len(c.send),
		})
	}
	slices.SortFunc(out, func(a, b ConnInfo) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})
	return out
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ServeWS upgrades the request to a websocket and serves it until the
// client disconnects. The granularity comes from the query string.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	g, err := protocol.GranularityFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		h.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newConn(h, ws, g, r.RemoteAddr)
	if err := h.join(c); err != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
		_ = ws.Close()
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		c.writeLoop()
	}()

	c.readLoop()
	h.leave(c)
}

// join registers c and queues its initial Refresh. Holding mu orders the
// Refresh before any patch the commit observer queues for c.
func (h *Hub) join(c *conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	h.wg.Add(1)
	h.conns[c.id] = c
	h.metrics.RecordConnect()
	h.sendRefresh(c, h.ledger.Current(), reasonJoin)

	c.logger.Info("connected", "remote", c.remote, "revision", c.revision, "connections", len(h.conns))
	return nil
}

// leave removes c from the hub and stops its writer.
func (h *Hub) leave(c *conn) {
	h.mu.Lock()
	_, ok := h.conns[c.id]
	if ok {
		delete(h.conns, c.id)
		h.setState(c, StateDisconnected)
	}
	remaining := len(h.conns)
	h.mu.Unlock()

	c.close()
	if !ok {
		return
	}
	h.wg.Done()

	c.logger.Info("disconnected",
		"remote", c.remote,
		"duration", time.Since(c.connectedAt).Round(time.Millisecond),
		"messages", c.msgsSent.Load(),
		"sent", humanize.Bytes(c.bytesSent.Load()),
		"connections", remaining,
	)
}

// refresh resends the current Refresh to c regardless of its state.
func (h *Hub) refresh(c *conn, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.state == StateDisconnected {
		return
	}
	h.sendRefresh(c, h.ledger.Current(), reason)
}

// resync refreshes c if it is still stale. The writer calls it once the
// queue has drained.
func (h *Hub) resync(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.state != StateStale {
		return
	}
	h.sendRefresh(c, h.ledger.Current(), reasonStale)
}

// sendRefresh queues a Refresh of snap to c. Callers hold mu.
func (h *Hub) sendRefresh(c *conn, snap tracking.Snapshot, reason string) {
	msg := protocol.Refresh{
		Revision:   snap.Revision,
		State:      snap.State,
		Build:      h.cfg.Build,
		ServerTime: protocol.Now(),
	}
	if !c.enqueue(protocol.Encode(msg)) {
		h.markStale(c)
		return
	}

	c.revision = snap.Revision
	h.setState(c, StateSynced)
	h.metrics.refreshes.WithLabelValues(reason).Inc()

	if reason != reasonJoin {
		c.logger.Debug("refresh queued", "reason", reason, "revision", snap.Revision)
	}
}

// markStale takes c out of broadcasts. Callers hold mu.
func (h *Hub) markStale(c *conn) {
	if c.state == StateStale {
		return
	}
	h.setState(c, StateStale)
	h.metrics.staleTotal.Inc()
	c.logger.Warn("connection stale", "revision", c.revision, "queued", len(c.send))
}

// setState records a state transition. Callers hold mu.
func (h *Hub) setState(c *conn, to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.stale.Store(to == StateStale)

	if from == StateSynced {
		h.synced[c.granularity].Add(-1)
	}
	if to == StateSynced {
		h.synced[c.granularity].Add(1)
	}
	h.metrics.RecordTransition(from, to)
}

// prepare runs on the ledger's writer before a commit. A diff failure
// aborts the publish.
func (h *Hub) prepare(prev, next tracking.Snapshot) (any, error) {
	p := &prepared{}
	ts := protocol.Now()

	for _, g := range granularities {
		if h.synced[g].Load() == 0 {
			continue
		}

		start := time.Now()
		ops, err := h.differ.Compute(prev.State, next.State, g)
		if err != nil {
			h.metrics.prepareErrors.Inc()
			return nil, fmt.Errorf("diff %s: %w", g, err)
		}
		msg := protocol.Patch{
			BaseRevision: prev.Revision,
			Ops:          ops,
			ServerTime:   ts,
		}
		p.data[g] = protocol.Encode(msg)
		p.summary[g] = diff.Summarize(ops)
		h.metrics.RecordDiff(g, time.Since(start), len(p.data[g]))
	}
	return p, nil
}

// onCommit queues the prepared patch to every synced connection at the
// previous revision.
func (h *Hub) onCommit(commit tracking.Commit) {
	p, _ := commit.Artifacts.(*prepared)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.metrics.publishes.Inc()

	var patched, refreshed int
	for _, c := range h.conns {
		if c.state != StateSynced || c.revision >= commit.Next.Revision {
			continue
		}

		var data []byte
		if p != nil && c.revision == commit.Prev.Revision {
			data = p.data[c.granularity]
		}
		if data == nil {
			// Joined after prepare ran, so no patch exists for it.
			h.sendRefresh(c, commit.Next, reasonMissing)
			refreshed++
			continue
		}

		if !c.enqueue(data) {
			h.markStale(c)
			continue
		}
		c.revision = commit.Next.Revision
		h.metrics.patches.WithLabelValues(c.granularity.String()).Inc()
		patched++
	}

	if h.logger.Enabled(context.Background(), slog.LevelDebug) {
		attrs := []any{
			"revision", commit.Next.Revision,
			"size", humanize.Bytes(uint64(len(commit.Next.State))),
			"patched", patched,
			"refreshed", refreshed,
		}
		if p != nil {
			for _, g := range granularities {
				if p.data[g] != nil {
					attrs = append(attrs, g.String(), p.summary[g].String())
				}
			}
		}
		h.logger.Debug("broadcast", attrs...)
	}
}

// Shutdown detaches the hub from the ledger, closes every connection and
// waits for their goroutines to exit or ctx to end.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.stopObserving()
	h.ledger.SetPrepare(nil)

	for _, c := range conns {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub stopped", "closed", len(conns))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, r.Header.Get("Origin"))
}
