package client

import (
	"time"

	"github.com/cenkalti/backoff"
)

// Default reconnect schedule.
const (
	DefaultInitialInterval = 1000 * time.Millisecond
	DefaultMultiplier      = 1.2
	DefaultMaxInterval     = 5000 * time.Millisecond
)

// BackoffConfig configures the reconnect schedule.
type BackoffConfig struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

// DefaultBackoffConfig returns the default reconnect schedule.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: DefaultInitialInterval,
		Multiplier:      DefaultMultiplier,
		MaxInterval:     DefaultMaxInterval,
	}
}

// Backoff yields reconnect intervals: the initial interval, multiplied
// after every attempt and capped at the maximum. It never gives up.
//
// Backoff is not safe for concurrent use.
type Backoff struct {
	b *backoff.ExponentialBackOff
}

// NewBackoff creates a backoff from cfg. Zero fields take the defaults.
func NewBackoff(cfg BackoffConfig) *Backoff {
	d := DefaultBackoffConfig()
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = d.InitialInterval
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = d.Multiplier
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = max(d.MaxInterval, cfg.InitialInterval)
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialInterval,
		RandomizationFactor: 0,
		Multiplier:          cfg.Multiplier,
		MaxInterval:         cfg.MaxInterval,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return &Backoff{b: b}
}

// Next returns the interval to wait before the next attempt and advances
// the schedule.
func (b *Backoff) Next() time.Duration {
	// Float multiplication can land a nanosecond short.
	return b.b.NextBackOff().Round(time.Millisecond)
}

// Reset restarts the schedule at the initial interval.
func (b *Backoff) Reset() {
	b.b.Reset()
}

// Max returns the interval cap.
func (b *Backoff) Max() time.Duration {
	return b.b.MaxInterval
}
