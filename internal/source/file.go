package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before it is reloaded.
const DefaultDebounce = 50 * time.Millisecond

// ErrNotRegular is returned when the watched path is not a regular file.
var ErrNotRegular = errors.New("source: not a regular file")

// FileOption configures a FileWatcher.
type FileOption func(*FileWatcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) FileOption {
	return func(w *FileWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFileLogger sets the watcher logger.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(w *FileWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// FileWatcher sets the sink's text to a file's content and reloads it
// whenever the file is written, created or replaced. Unchanged content
// does not publish.
type FileWatcher struct {
	sink     Sink
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(sink Sink, path string, opts ...FileOption) (*FileWatcher, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &FileWatcher{
		sink:     sink,
		path:     abs,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string {
	return w.path
}

// Read returns the file's content with invalid UTF-8 replaced, so every
// published state survives the JSON wire encoding unchanged.
func (w *FileWatcher) Read() (string, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotRegular, w.path)
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// Load reads the file and publishes it if it changed.
func (w *FileWatcher) Load(ctx context.Context) (rev uint64, changed bool, err error) {
	text, err := w.Read()
	if err != nil {
		return 0, false, err
	}

	rev, changed, err = w.sink.SetText(ctx, text)
	if err != nil {
		return 0, false, err
	}
	if changed {
		w.logger.Info("file loaded", "path", w.path, "size", humanize.Bytes(uint64(len(text))), "revision", rev)
	}
	return rev, changed, nil
}

// Run loads the file, then reloads it after every change until ctx is
// done. The parent directory is watched so editors that replace the file
// by renaming are followed.
func (w *FileWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	if _, _, err := w.Load(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !affectsContent(ev.Op) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "path", w.path, "error", err)

		case <-timer.C:
			if _, _, err := w.Load(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// The file may be mid-replace; the next event retries.
				w.logger.Warn("reload failed", "path", w.path, "error", err)
			}
		}
	}
}

func affectsContent(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}
