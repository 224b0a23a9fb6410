package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/dshills/ropesync/internal/engine/tracking"
	"github.com/dshills/ropesync/internal/observability"
)

// Routes served by Router.
const (
	PathSync        = "/sync"
	PathState       = "/state"
	PathHistory     = "/history"
	PathRevision    = "/revisions/{rev:[0-9]+}"
	PathConnections = "/connections"
	PathMetrics     = "/metrics"
	PathHealth      = "/healthz"
	PathReady       = "/readyz"
)

// snapshotJSON is the JSON form of a ledger snapshot.
type snapshotJSON struct {
	Revision  uint64    `json:"revision"`
	State     string    `json:"state,omitempty"`
	Length    int       `json:"length"`
	Timestamp time.Time `json:"timestamp"`
	Build     string    `json:"build,omitempty"`
}

// Router returns the HTTP handler for the hub.
func (h *Hub) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)

	r.HandleFunc(PathSync, h.ServeWS).Methods(http.MethodGet)
	r.HandleFunc(PathState, h.handleState).Methods(http.MethodGet)
	r.HandleFunc(PathHistory, h.handleHistory).Methods(http.MethodGet)
	r.HandleFunc(PathRevision, h.handleRevision).Methods(http.MethodGet)
	r.HandleFunc(PathConnections, h.handleConnections).Methods(http.MethodGet)
	r.Handle(PathHealth, observability.HealthHandler()).Methods(http.MethodGet)
	r.Handle(PathReady, observability.ReadyHandler(h.ready)).Methods(http.MethodGet)
	if h.registry != nil {
		r.Handle(PathMetrics, observability.MetricsHandler(h.registry)).Methods(http.MethodGet)
	}
	return r
}

// logRequests logs every request after it completes.
func (h *Hub) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		level := slog.LevelDebug
		if m.Code >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		h.logger.Log(r.Context(), level, "handled",
			"method", r.Method,
			"url", r.URL.String(),
			"duration", m.Duration,
			"status", m.Code,
			"bytes", m.Written,
		)
	})
}

func (h *Hub) ready(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	return nil
}

func (h *Hub) handleState(w http.ResponseWriter, _ *http.Request) {
	snap := h.ledger.Current()
	writeJSON(w, http.StatusOK, snapshotJSON{
		Revision:  snap.Revision,
		State:     snap.State,
		Length:    len(snap.State),
		Timestamp: snap.Timestamp,
		Build:     h.cfg.Build,
	})
}

func (h *Hub) handleHistory(w http.ResponseWriter, _ *http.Request) {
	history := h.ledger.History()
	out := make([]snapshotJSON, 0, len(history))
	for _, snap := range history {
		out = append(out, snapshotJSON{
			Revision:  snap.Revision,
			Length:    len(snap.State),
			Timestamp: snap.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Hub) handleRevision(w http.ResponseWriter, r *http.Request) {
	rev, err := strconv.ParseUint(mux.Vars(r)["rev"], 10, 64)
	if err != nil {
		http.Error(w, "invalid revision", http.StatusBadRequest)
		return
	}

	snap, err := h.ledger.Get(rev)
	if errors.Is(err, tracking.ErrRevisionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snapshotJSON{
		Revision:  snap.Revision,
		State:     snap.State,
		Length:    len(snap.State),
		Timestamp: snap.Timestamp,
	})
}

func (h *Hub) handleConnections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Connections())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve serves the hub on ln until ctx is done, then shuts the hub and
// the HTTP server down within the hub's write timeout.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	h.logger.Info("listening", "addr", ln.Addr().String(), "build", h.cfg.Build)

	select {
	case err := <-errCh:
		_ = h.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.cfg.WriteTimeout)
	defer cancel()

	hubErr := h.Shutdown(shutdownCtx)
	srvErr := srv.Shutdown(shutdownCtx)
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return errors.Join(hubErr, srvErr)
}

// ListenAndServe listens on addr and calls Serve.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}
