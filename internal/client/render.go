package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dshills/ropesync/internal/engine/rope"
)

// View is an immutable snapshot of the mirror handed to a Renderer.
type View struct {
	Text     rope.Rope
	Revision uint64
	// Synced is false until the first Refresh.
	Synced bool
	Phase  Phase
	// ServerTime is when the server sent the last applied message.
	ServerTime time.Time
}

// Latency returns the time since the server sent the last applied
// message, or zero if unknown.
func (v View) Latency() time.Duration {
	if v.ServerTime.IsZero() {
		return 0
	}
	return time.Since(v.ServerTime)
}

// Renderer draws views. Render is called from the client's event loop and
// a returned error or panic ends the session with a reload.
type Renderer interface {
	Render(v View) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(v View) error

// Render calls f(v).
func (f RendererFunc) Render(v View) error {
	return f(v)
}

// LogRenderer logs a summary of each view.
type LogRenderer struct {
	logger *slog.Logger
}

// NewLogRenderer creates a renderer that logs to logger.
func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRenderer{logger: logger}
}

// Render implements Renderer.
func (r *LogRenderer) Render(v View) error {
	if !v.Synced || v.Phase == PhaseDisconnected {
		r.logger.Info("view", "phase", v.Phase.String())
		return nil
	}
	r.logger.Info("view",
		"phase", v.Phase.String(),
		"revision", v.Revision,
		"lines", v.Text.Total(rope.Line),
		"chars", humanize.Comma(int64(v.Text.Len())),
		"latency", v.Latency().Round(time.Millisecond),
	)
	return nil
}

// safeRender calls r.Render and converts a panic into an error.
func safeRender(r Renderer, v View) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render panic: %v", p)
		}
	}()
	return r.Render(v)
}
