package config

import (
	"fmt"
	"time"

	"github.com/dshills/ropesync/internal/client"
	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/observability"
	"github.com/dshills/ropesync/internal/server"
)

// Duration is a time.Duration written as a string such as "1.5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig holds the sync server settings.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	Listen string `toml:"listen" yaml:"listen"`

	// Build is the identifier sent to clients. Ignored when BuildFile is set.
	Build string `toml:"build" yaml:"build"`

	// BuildFile derives the build identifier from this file's mtime.
	BuildFile string `toml:"build_file" yaml:"build_file"`

	QueueSize      int      `toml:"queue_size" yaml:"queue_size"`
	WriteTimeout   Duration `toml:"write_timeout" yaml:"write_timeout"`
	PingInterval   Duration `toml:"ping_interval" yaml:"ping_interval"`
	MaxMessageSize int64    `toml:"max_message_size" yaml:"max_message_size"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`

	// History is the number of revisions kept by the ledger.
	History int `toml:"history" yaml:"history"`

	// MaxDepth is the rope depth above which the document rebalances.
	MaxDepth int `toml:"max_depth" yaml:"max_depth"`
}

// HubConfig converts the section to server.Config. The build identifier
// is resolved from BuildFile when set.
func (s ServerConfig) HubConfig() (server.Config, error) {
	build := s.Build
	if s.BuildFile != "" {
		b, err := server.BuildFromFile(s.BuildFile)
		if err != nil {
			return server.Config{}, err
		}
		build = b
	}
	return server.Config{
		Build:          build,
		QueueSize:      s.QueueSize,
		WriteTimeout:   s.WriteTimeout.Std(),
		PingInterval:   s.PingInterval.Std(),
		MaxMessageSize: s.MaxMessageSize,
		AllowedOrigins: s.AllowedOrigins,
	}, nil
}

// ClientConfig holds the mirror client settings.
type ClientConfig struct {
	URL              string   `toml:"url" yaml:"url"`
	Granularity      string   `toml:"granularity" yaml:"granularity"`
	InitialInterval  Duration `toml:"initial_interval" yaml:"initial_interval"`
	Multiplier       float64  `toml:"multiplier" yaml:"multiplier"`
	MaxInterval      Duration `toml:"max_interval" yaml:"max_interval"`
	FrameInterval    Duration `toml:"frame_interval" yaml:"frame_interval"`
	HandshakeTimeout Duration `toml:"handshake_timeout" yaml:"handshake_timeout"`
}

// MirrorConfig converts the section to client.Config.
func (c ClientConfig) MirrorConfig() (client.Config, error) {
	g, err := diff.ParseGranularity(c.Granularity)
	if err != nil {
		return client.Config{}, err
	}
	return client.Config{
		URL:         c.URL,
		Granularity: g,
		Backoff: client.BackoffConfig{
			InitialInterval: c.InitialInterval.Std(),
			Multiplier:      c.Multiplier,
			MaxInterval:     c.MaxInterval.Std(),
		},
		FrameInterval:    c.FrameInterval.Std(),
		HandshakeTimeout: c.HandshakeTimeout.Std(),
	}, nil
}

// DiffConfig selects and bounds the diff algorithm.
type DiffConfig struct {
	// Algorithm is "dmp" or "myers".
	Algorithm     string   `toml:"algorithm" yaml:"algorithm"`
	Timeout       Duration `toml:"timeout" yaml:"timeout"`
	MaxMyersUnits int      `toml:"max_myers_units" yaml:"max_myers_units"`
}

// Options converts the section to diff.Options.
func (d DiffConfig) Options() (diff.Options, error) {
	alg, err := diff.ParseAlgorithm(d.Algorithm)
	if err != nil {
		return diff.Options{}, err
	}
	return diff.Options{
		Algorithm:     alg,
		Timeout:       d.Timeout.Std(),
		MaxMyersUnits: d.MaxMyersUnits,
	}, nil
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`
	// Format is text or json.
	Format string `toml:"format" yaml:"format"`
}

// LoggerConfig converts the section to an observability.LoggerConfig.
func (l LoggingConfig) LoggerConfig() (observability.LoggerConfig, error) {
	format, err := observability.ParseLogFormat(l.Format)
	if err != nil {
		return observability.LoggerConfig{}, err
	}
	cfg := observability.DefaultLoggerConfig()
	cfg.Level = observability.ParseLogLevel(l.Level)
	cfg.Format = format
	return cfg, nil
}

// SourceConfig selects what the server publishes.
type SourceConfig struct {
	// Watch publishes the content of this file. Takes precedence over Tick.
	Watch string `toml:"watch" yaml:"watch"`

	// Debounce is the quiet period before a changed file is reloaded.
	Debounce Duration `toml:"debounce" yaml:"debounce"`

	// Tick is the demo counter interval used when Watch is empty.
	Tick Duration `toml:"tick" yaml:"tick"`
}
