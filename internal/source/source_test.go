package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropesync/internal/engine"
	"github.com/dshills/ropesync/internal/engine/tracking"
	"github.com/dshills/ropesync/internal/observability"
	"github.com/dshills/ropesync/internal/source"
)

type recordingSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *recordingSink) SetText(_ context.Context, text string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, false, s.err
	}
	if n := len(s.texts); n > 0 && s.texts[n-1] == text {
		return uint64(n), false, nil
	}
	s.texts = append(s.texts, text)
	return uint64(len(s.texts)), true, nil
}

func (s *recordingSink) last() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return "", 0
	}
	return s.texts[len(s.texts)-1], len(s.texts)
}

func newDocument(t *testing.T, initial string) *engine.Document {
	t.Helper()
	ledger := tracking.NewLedger(initial)
	t.Cleanup(func() { _ = ledger.Close() })
	return engine.NewDocument(ledger)
}

func TestRenderCounter(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		`<div style="text-align:center;line-height:100px;border:1px solid red;width:100px;height:100px;">0</div>`,
		source.RenderCounter(0))
	assert.Equal(t,
		`<div style="text-align:center;line-height:107px;border:1px solid red;width:107px;height:107px;">7</div>`,
		source.RenderCounter(7))
}

func TestTicker_Tick(t *testing.T) {
	t.Parallel()

	doc := newDocument(t, source.RenderCounter(0))
	ticker, err := source.NewTicker(doc, time.Second, source.WithTickLogger(observability.Discard()))
	require.NoError(t, err)
	assert.Equal(t, source.RenderCounter(0), ticker.Initial())

	for i := 1; i <= 3; i++ {
		rev, err := ticker.Tick(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), rev)
	}
	assert.Equal(t, 3, ticker.Count())
	assert.Equal(t, source.RenderCounter(3), doc.Text())
}

func TestTicker_CustomRender(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	ticker, err := source.NewTicker(sink, 0, source.WithRender(func(n int) string {
		return string(rune('a' + n))
	}))
	require.NoError(t, err)

	_, err = ticker.Tick(context.Background())
	require.NoError(t, err)
	text, _ := sink.last()
	assert.Equal(t, "b", text)
}

func TestTicker_TickError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ticker, err := source.NewTicker(&recordingSink{err: boom}, time.Second)
	require.NoError(t, err)

	_, err = ticker.Tick(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestTicker_Run(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	ticker, err := source.NewTicker(sink, 5*time.Millisecond, source.WithTickLogger(observability.Discard()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ticker.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, n := sink.last()
		return n >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestNilSink(t *testing.T) {
	t.Parallel()

	_, err := source.NewTicker(nil, time.Second)
	require.ErrorIs(t, err, source.ErrNoSink)

	_, err = source.NewFileWatcher(nil, "x")
	require.ErrorIs(t, err, source.ErrNoSink)
}

func TestFileWatcher_Load(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

	doc := newDocument(t, "")
	w, err := source.NewFileWatcher(doc, path, source.WithFileLogger(observability.Discard()))
	require.NoError(t, err)

	rev, changed, err := w.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint64(1), rev)
	assert.Equal(t, "hello\n", doc.Text())

	// Same content does not bump the revision.
	rev, changed, err = w.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, uint64(1), rev)
}

func TestFileWatcher_InvalidUTF8(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bin.txt")
	require.NoError(t, os.WriteFile(path, []byte{'a', 0xff, 'b'}, 0o644))

	w, err := source.NewFileWatcher(&recordingSink{}, path)
	require.NoError(t, err)

	text, err := w.Read()
	require.NoError(t, err)
	assert.Equal(t, "a�b", text)
}

func TestFileWatcher_NotRegular(t *testing.T) {
	t.Parallel()

	w, err := source.NewFileWatcher(&recordingSink{}, t.TempDir())
	require.NoError(t, err)

	_, err = w.Read()
	require.ErrorIs(t, err, source.ErrNotRegular)
}

func TestFileWatcher_Missing(t *testing.T) {
	t.Parallel()

	w, err := source.NewFileWatcher(&recordingSink{}, filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)

	_, _, err = w.Load(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileWatcher_Run(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	sink := &recordingSink{}
	w, err := source.NewFileWatcher(sink, path,
		source.WithDebounce(10*time.Millisecond),
		source.WithFileLogger(observability.Discard()))
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		text, _ := sink.last()
		return text == "one"
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	require.Eventually(t, func() bool {
		text, _ := sink.last()
		return text == "two"
	}, 2*time.Second, 5*time.Millisecond)

	// Replace by rename, as many editors save.
	tmp := filepath.Join(dir, "doc.txt.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("three"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	require.Eventually(t, func() bool {
		text, _ := sink.last()
		return text == "three"
	}, 2*time.Second, 5*time.Millisecond)

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	text, _ := sink.last()
	assert.Equal(t, "three", text)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
