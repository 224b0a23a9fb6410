package server

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/ropesync/internal/engine/diff"
)

// Default connection settings.
const (
	DefaultQueueSize      = 256
	DefaultWriteTimeout   = 10 * time.Second
	DefaultPingInterval   = 30 * time.Second
	DefaultMaxMessageSize = 4096
)

// Config holds the hub settings.
type Config struct {
	// Build identifies the server build. Clients reload when it changes.
	Build string

	// QueueSize is the number of messages a connection may have pending
	// before it is marked stale.
	QueueSize int

	// WriteTimeout bounds each socket write.
	WriteTimeout time.Duration

	// PingInterval is how often idle connections are pinged. A connection
	// that answers nothing for twice this long is dropped.
	PingInterval time.Duration

	// MaxMessageSize limits client messages.
	MaxMessageSize int64

	// AllowedOrigins restricts websocket upgrades by Origin header.
	// Empty allows any origin.
	AllowedOrigins []string
}

// DefaultConfig returns the default hub configuration.
func DefaultConfig() Config {
	return Config{
		Build:          "dev",
		QueueSize:      DefaultQueueSize,
		WriteTimeout:   DefaultWriteTimeout,
		PingInterval:   DefaultPingInterval,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// BuildFromFile derives a build identifier from the modification time of
// path, typically the client bundle, so that rebuilding it makes every
// connected client reload.
func BuildFromFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("build from file: %w", err)
	}
	return strconv.FormatInt(info.ModTime().UnixMilli(), 10), nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Build == "" {
		c.Build = d.Build
	}
	if c.QueueSize < 1 {
		c.QueueSize = d.QueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	return c
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRegistry registers the hub metrics with reg and serves them at
// /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(h *Hub) {
		h.registry = reg
	}
}

// WithDiffer sets the differ used to compute patches.
func WithDiffer(d *diff.Differ) Option {
	return func(h *Hub) {
		if d != nil {
			h.differ = d
		}
	}
}
