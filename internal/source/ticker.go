package source

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// DefaultTickInterval is the demo counter's update interval.
const DefaultTickInterval = time.Second

// RenderFunc renders the document for a counter value.
type RenderFunc func(count int) string

// RenderCounter renders a box whose size and label grow with count.
func RenderCounter(count int) string {
	size := strconv.Itoa(100 + count)
	return `<div style="text-align:center;line-height:` + size +
		`px;border:1px solid red;width:` + size +
		`px;height:` + size + `px;">` + strconv.Itoa(count) + `</div>`
}

// TickerOption configures a Ticker.
type TickerOption func(*Ticker)

// WithRender sets the render function.
func WithRender(fn RenderFunc) TickerOption {
	return func(t *Ticker) {
		if fn != nil {
			t.render = fn
		}
	}
}

// WithTickLogger sets the ticker logger.
func WithTickLogger(logger *slog.Logger) TickerOption {
	return func(t *Ticker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Ticker increments a counter every interval and sets the rendered
// counter as the sink's text.
type Ticker struct {
	sink     Sink
	interval time.Duration
	render   RenderFunc
	logger   *slog.Logger
	count    int
}

// NewTicker creates a ticker. A non-positive interval uses
// DefaultTickInterval.
func NewTicker(sink Sink, interval time.Duration, opts ...TickerOption) (*Ticker, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	t := &Ticker{
		sink:     sink,
		interval: interval,
		render:   RenderCounter,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Initial returns the text for count zero, the document's starting state.
func (t *Ticker) Initial() string {
	return t.render(0)
}

// Count returns the current counter value.
func (t *Ticker) Count() int {
	return t.count
}

// Tick advances the counter and publishes its rendering.
func (t *Ticker) Tick(ctx context.Context) (uint64, error) {
	t.count++
	rev, _, err := t.sink.SetText(ctx, t.render(t.count))
	if err != nil {
		return 0, fmt.Errorf("tick %d: %w", t.count, err)
	}
	t.logger.Debug("tick", "count", t.count, "revision", rev)
	return rev, nil
}

// Run ticks until ctx is done. A failed publish is logged and the next
// tick retries with the next count.
func (t *Ticker) Run(ctx context.Context) error {
	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if _, err := t.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				t.logger.Warn("tick failed", "error", err)
			}
		}
	}
}
