package termview_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropesync/internal/client"
	"github.com/dshills/ropesync/internal/client/termview"
	"github.com/dshills/ropesync/internal/engine/rope"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

// row returns the text of row y, one rune per cell.
func row(screen tcell.SimulationScreen, y int) string {
	cells, w, _ := screen.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return b.String()
}

func syncedView(text string, rev uint64) client.View {
	return client.View{Text: rope.FromString(text), Revision: rev, Synced: true, Phase: client.PhaseSynced}
}

func TestView_RendersLinesAndStatus(t *testing.T) {
	t.Parallel()

	screen := newScreen(t, 20, 4)
	v := termview.New(screen, "test")
	require.NoError(t, v.Render(syncedView("hello\nworld\n", 3)))

	assert.Equal(t, "hello", strings.TrimRight(row(screen, 0), " "))
	assert.Equal(t, "world", strings.TrimRight(row(screen, 1), " "))
	assert.Equal(t, "", strings.TrimSpace(row(screen, 2)))
	assert.Contains(t, row(screen, 3), "rev 3")
	assert.Contains(t, row(screen, 3), "2 lines")
}

func TestView_ClipsToWidth(t *testing.T) {
	t.Parallel()

	screen := newScreen(t, 5, 2)
	v := termview.New(screen, "")
	require.NoError(t, v.Render(syncedView("abcdefghij", 0)))

	assert.Equal(t, "abcde", row(screen, 0))
}

func TestView_WideCharacters(t *testing.T) {
	t.Parallel()

	screen := newScreen(t, 5, 2)
	v := termview.New(screen, "")
	require.NoError(t, v.Render(syncedView("日本語", 0)))

	cells, _, _ := screen.GetContents()
	assert.Equal(t, '日', cells[0].Runes[0])
	assert.Equal(t, '本', cells[2].Runes[0])
	// The third character would end past the last column.
	assert.NotContains(t, row(screen, 0), "語")
}

func TestView_Tabs(t *testing.T) {
	t.Parallel()

	screen := newScreen(t, 12, 2)
	v := termview.New(screen, "")
	require.NoError(t, v.Render(syncedView("a\tb", 0)))

	assert.Equal(t, "a       b   ", row(screen, 0))
}

func TestView_Disconnected(t *testing.T) {
	t.Parallel()

	screen := newScreen(t, 30, 3)
	v := termview.New(screen, "ws://x")
	cv := syncedView("kept\n", 1)
	cv.Phase = client.PhaseDisconnected
	require.NoError(t, v.Render(cv))

	assert.Equal(t, "kept", strings.TrimRight(row(screen, 0), " "))
	assert.Contains(t, row(screen, 2), "NO CONNECTION")
}

func TestView_ScrollAndFollow(t *testing.T) {
	t.Parallel()

	var text strings.Builder
	for i := range 10 {
		text.WriteString(strings.Repeat(string(rune('0'+i)), 3) + "\n")
	}

	screen := newScreen(t, 10, 4)
	v := termview.New(screen, "")
	require.NoError(t, v.Render(syncedView(text.String(), 0)))
	assert.Equal(t, "000", strings.TrimSpace(row(screen, 0)))

	v.Scroll(2)
	assert.Equal(t, "222", strings.TrimSpace(row(screen, 0)))

	v.Scroll(100)
	assert.Equal(t, 7, v.Top(), "clamped so the last line is on the last row")

	v.Scroll(-100)
	assert.Equal(t, 0, v.Top())

	v.Follow(true)
	assert.Equal(t, "999", strings.TrimSpace(row(screen, 2)))
}

func TestView_HandleEvents(t *testing.T) {
	t.Parallel()

	var text strings.Builder
	for i := range 10 {
		text.WriteString(strings.Repeat(string(rune('a'+i)), 2) + "\n")
	}

	screen := newScreen(t, 10, 4)
	v := termview.New(screen, "")
	require.NoError(t, v.Render(syncedView(text.String(), 0)))

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		v.HandleEvents(func() { close(quit) })
	}()

	screen.InjectKey(tcell.KeyDown, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'j', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case <-quit:
	case <-time.After(5 * time.Second):
		t.Fatal("quit was not called")
	}
	<-done

	assert.Equal(t, 2, v.Top())
	assert.Equal(t, "cc", strings.TrimSpace(row(screen, 0)))
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.False(t, termview.IsTerminal(w))
}
