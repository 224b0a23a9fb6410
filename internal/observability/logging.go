package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	// FormatText writes logfmt-style lines.
	FormatText LogFormat = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON LogFormat = "json"
)

// ErrInvalidLogFormat is returned for unknown format names.
var ErrInvalidLogFormat = fmt.Errorf("observability: invalid log format")

// ParseLogLevel parses a level name. Unknown names map to Info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogFormat parses a format name. The empty string means text.
func ParseLogFormat(s string) (LogFormat, error) {
	switch LogFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("%w: %q", ErrInvalidLogFormat, s)
	}
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	// Level is the minimum log level to output.
	Level slog.Level
	// Format selects text or JSON output.
	Format LogFormat
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Service is attached to every record when non-empty.
	Service string
}

// DefaultLoggerConfig returns the default logger configuration.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:   slog.LevelInfo,
		Format:  FormatText,
		Output:  os.Stderr,
		Service: "ropesync",
	}
}

// NewLogger creates a slog logger from cfg.
func NewLogger(cfg LoggerConfig) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		h = slog.NewTextHandler(cfg.Output, opts)
	}

	logger := slog.New(h)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger
}

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
