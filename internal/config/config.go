package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/ropesync/internal/client"
	"github.com/dshills/ropesync/internal/config/loader"
	"github.com/dshills/ropesync/internal/engine"
	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/engine/tracking"
	"github.com/dshills/ropesync/internal/server"
	"github.com/dshills/ropesync/internal/source"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "ROPESYNC_"

// EnvConfigFile names the config file when no path is given.
const EnvConfigFile = EnvPrefix + "CONFIG"

// DefaultListen is the default server listen address.
const DefaultListen = "127.0.0.1:8080"

// Config is the complete ropesync configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Client  ClientConfig  `toml:"client" yaml:"client"`
	Diff    DiffConfig    `toml:"diff" yaml:"diff"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Source  SourceConfig  `toml:"source" yaml:"source"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:         DefaultListen,
			Build:          "dev",
			QueueSize:      server.DefaultQueueSize,
			WriteTimeout:   Duration(server.DefaultWriteTimeout),
			PingInterval:   Duration(server.DefaultPingInterval),
			MaxMessageSize: server.DefaultMaxMessageSize,
			History:        tracking.DefaultHistory,
			MaxDepth:       engine.DefaultMaxDepth,
		},
		Client: ClientConfig{
			URL:              "ws://" + DefaultListen + server.PathSync,
			Granularity:      diff.Char.String(),
			InitialInterval:  Duration(client.DefaultInitialInterval),
			Multiplier:       client.DefaultMultiplier,
			MaxInterval:      Duration(client.DefaultMaxInterval),
			FrameInterval:    Duration(client.DefaultFrameInterval),
			HandshakeTimeout: Duration(client.DefaultHandshakeTimeout),
		},
		Diff: DiffConfig{
			Algorithm:     diff.AlgorithmDMP.String(),
			Timeout:       Duration(diff.DefaultTimeout),
			MaxMyersUnits: diff.DefaultMaxMyersUnits,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Source: SourceConfig{
			Debounce: Duration(source.DefaultDebounce),
			Tick:     Duration(source.DefaultTickInterval),
		},
	}
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	fs      loader.FileSystem
	environ func() []string
}

// WithFS reads config files from fsys.
func WithFS(fsys loader.FileSystem) LoadOption {
	return func(o *loadOptions) {
		o.fs = fsys
	}
}

// WithEnviron replaces os.Environ as the source of overrides.
func WithEnviron(environ func() []string) LoadOption {
	return func(o *loadOptions) {
		o.environ = environ
	}
}

// Load resolves the configuration from defaults, the file at path and the
// environment, then validates it. An empty path falls back to
// $ROPESYNC_CONFIG; with neither, only defaults and environment apply.
func Load(path string, opts ...LoadOption) (Config, error) {
	o := loadOptions{fs: loader.DefaultFS(), environ: os.Environ}
	for _, opt := range opts {
		opt(&o)
	}

	if path == "" {
		path = lookupEnv(o.environ, EnvConfigFile)
	}

	merged := map[string]any{}

	if path != "" {
		if _, err := o.fs.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return Config{}, err
		}
		l, err := loader.ForFile(o.fs, path)
		if err != nil {
			return Config{}, err
		}
		file, err := l.Load()
		if err != nil {
			return Config{}, err
		}
		merged = loader.DeepMerge(merged, file)
	}

	env := loader.NewEnvLoaderWithMapping(EnvPrefix, map[string]string{
		EnvConfigFile: "",
	}).WithEnviron(o.environ)
	overrides, err := env.Load()
	if err != nil {
		return Config{}, err
	}
	merged = loader.DeepMerge(merged, overrides)

	cfg := Default()
	if err := decode(merged, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode applies the merged map onto cfg, keeping defaults for absent keys.
func decode(merged map[string]any, cfg *Config) error {
	if len(merged) == 0 {
		return nil
	}

	data, err := toml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: unknown keys:\n%s", ErrDecode, strict.String())
		}
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

func lookupEnv(environ func() []string, name string) string {
	for _, kv := range environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			return v
		}
	}
	return ""
}

// Validate checks every section and returns all failures joined.
func (c Config) Validate() error {
	var errs []error
	add := func(path, msg string, value any, code ValidationErrorCode) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value, Code: code})
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		add("server.listen", "must be host:port", c.Server.Listen, ErrCodeInvalidFormat)
	}
	if c.Server.QueueSize < 1 {
		add("server.queue_size", "must be at least 1", c.Server.QueueSize, ErrCodeOutOfRange)
	}
	if c.Server.History < 1 {
		add("server.history", "must be at least 1", c.Server.History, ErrCodeOutOfRange)
	}
	if c.Server.MaxDepth < 1 {
		add("server.max_depth", "must be at least 1", c.Server.MaxDepth, ErrCodeOutOfRange)
	}
	if c.Server.MaxMessageSize < 1 {
		add("server.max_message_size", "must be positive", c.Server.MaxMessageSize, ErrCodeOutOfRange)
	}
	if c.Server.WriteTimeout <= 0 {
		add("server.write_timeout", "must be positive", c.Server.WriteTimeout.Std(), ErrCodeOutOfRange)
	}
	if c.Server.PingInterval <= 0 {
		add("server.ping_interval", "must be positive", c.Server.PingInterval.Std(), ErrCodeOutOfRange)
	}
	if c.Server.Build == "" && c.Server.BuildFile == "" {
		add("server.build", "build or build_file is required", c.Server.Build, ErrCodeRequiredMissing)
	}

	if u, err := url.Parse(c.Client.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		add("client.url", "must be a ws:// or wss:// URL", c.Client.URL, ErrCodeInvalidFormat)
	}
	if _, err := diff.ParseGranularity(c.Client.Granularity); err != nil {
		add("client.granularity", "must be char or line", c.Client.Granularity, ErrCodeInvalidEnum)
	}
	if c.Client.InitialInterval <= 0 {
		add("client.initial_interval", "must be positive", c.Client.InitialInterval.Std(), ErrCodeOutOfRange)
	}
	if c.Client.Multiplier < 1 {
		add("client.multiplier", "must be at least 1", c.Client.Multiplier, ErrCodeOutOfRange)
	}
	if c.Client.MaxInterval < c.Client.InitialInterval {
		add("client.max_interval", "must not be below initial_interval", c.Client.MaxInterval.Std(), ErrCodeOutOfRange)
	}
	if c.Client.FrameInterval < 0 {
		add("client.frame_interval", "must not be negative", c.Client.FrameInterval.Std(), ErrCodeOutOfRange)
	}

	if _, err := diff.ParseAlgorithm(c.Diff.Algorithm); err != nil {
		add("diff.algorithm", "must be dmp or myers", c.Diff.Algorithm, ErrCodeInvalidEnum)
	}
	if c.Diff.Timeout < 0 {
		add("diff.timeout", "must not be negative", c.Diff.Timeout.Std(), ErrCodeOutOfRange)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "must be debug, info, warn or error", c.Logging.Level, ErrCodeInvalidEnum)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add("logging.format", "must be text or json", c.Logging.Format, ErrCodeInvalidEnum)
	}

	if c.Source.Watch == "" && c.Source.Tick <= 0 {
		add("source.tick", "must be positive when no file is watched", c.Source.Tick.Std(), ErrCodeOutOfRange)
	}
	if c.Source.Debounce < 0 {
		add("source.debounce", "must not be negative", c.Source.Debounce.Std(), ErrCodeOutOfRange)
	}

	return errors.Join(errs...)
}

// Marshal renders c as TOML, suitable as a starting config file.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
