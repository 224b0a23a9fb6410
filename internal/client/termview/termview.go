// Package termview renders a mirrored document to a terminal with tcell.
package termview

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
	"golang.org/x/term"

	"github.com/dshills/ropesync/internal/client"
	"github.com/dshills/ropesync/internal/engine/rope"
)

const tabWidth = 8

// Status line styles by phase.
var (
	styleText         = tcell.StyleDefault
	styleSynced       = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleAwaiting     = tcell.StyleDefault.Background(tcell.ColorYellow).Foreground(tcell.ColorBlack)
	styleDisconnected = tcell.StyleDefault.Background(tcell.ColorRed).Foreground(tcell.ColorWhite).Bold(true)
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// View draws client views on a tcell screen: the document's lines, clipped
// to the screen width, above a one-line status bar.
type View struct {
	mu     sync.Mutex
	screen tcell.Screen
	title  string

	top    int
	follow bool
	last   client.View
}

// New creates a view on an initialized screen.
func New(screen tcell.Screen, title string) *View {
	return &View{screen: screen, title: title}
}

// NewTerminal creates and initializes a terminal screen.
func NewTerminal(title string) (*View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	return New(screen, title), nil
}

// Close restores the terminal.
func (v *View) Close() {
	v.screen.Fini()
}

// Render implements client.Renderer.
func (v *View) Render(cv client.View) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.last = cv
	v.draw()
	return nil
}

// Follow keeps the last line in view as the document grows.
func (v *View) Follow(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.follow = on
	v.draw()
}

// Scroll moves the first visible line by delta lines.
func (v *View) Scroll(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.follow = false
	v.top += delta
	v.draw()
}

// HandleEvents processes key and resize events until the screen is closed
// or the user quits with q, Esc or Ctrl-C, in which case quit is called.
func (v *View) HandleEvents(quit func()) {
	for {
		switch ev := v.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			v.screen.Sync()
			v.redraw()
		case *tcell.EventKey:
			_, h := v.screen.Size()
			page := max(h-2, 1)

			switch {
			case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
				quit()
				return
			case ev.Key() == tcell.KeyUp, ev.Key() == tcell.KeyRune && ev.Rune() == 'k':
				v.Scroll(-1)
			case ev.Key() == tcell.KeyDown, ev.Key() == tcell.KeyRune && ev.Rune() == 'j':
				v.Scroll(1)
			case ev.Key() == tcell.KeyPgUp:
				v.Scroll(-page)
			case ev.Key() == tcell.KeyPgDn:
				v.Scroll(page)
			case ev.Key() == tcell.KeyHome:
				v.Scroll(-v.Top())
			case ev.Key() == tcell.KeyEnd, ev.Key() == tcell.KeyRune && ev.Rune() == 'f':
				v.Follow(true)
			}
		}
	}
}

// Top returns the first visible line.
func (v *View) Top() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.top
}

func (v *View) redraw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draw()
}

// draw renders v.last. Callers hold mu.
func (v *View) draw() {
	w, h := v.screen.Size()
	if w <= 0 || h <= 0 {
		return
	}
	v.screen.Clear()

	rows := h - 1
	text := v.last.Text
	lines := text.Total(rope.Line)

	maxTop := max(lines-rows, 0)
	if v.follow {
		v.top = maxTop
	}
	v.top = min(max(v.top, 0), maxTop)

	for row := 0; row < rows && v.top+row < lines; row++ {
		line, err := text.Slice(v.top+row, v.top+row+1, rope.Line)
		if err != nil {
			break
		}
		drawLine(v.screen, row, w, strings.TrimSuffix(line, "\n"), styleText)
	}

	status, style := v.status(lines)
	drawLine(v.screen, h-1, w, padRight(status, w), style)
	v.screen.Show()
}

func (v *View) status(lines int) (string, tcell.Style) {
	cv := v.last
	switch {
	case cv.Phase == client.PhaseDisconnected:
		return fmt.Sprintf(" NO CONNECTION  %s", v.title), styleDisconnected
	case !cv.Synced:
		return fmt.Sprintf(" connecting  %s", v.title), styleAwaiting
	case cv.Phase == client.PhaseAwaitingRefresh:
		return fmt.Sprintf(" rev %d  awaiting refresh  %s", cv.Revision, v.title), styleAwaiting
	}

	s := fmt.Sprintf(" rev %d  %d lines  %s", cv.Revision, lines, v.title)
	if l := cv.Latency(); l > 0 {
		s += fmt.Sprintf("  %s", l.Round(time.Millisecond))
	}
	return s, styleSynced
}

// drawLine draws s at row y one grapheme cluster at a time and stops at
// the first cluster that does not fit in width.
func drawLine(screen tcell.Screen, y, width int, s string, style tcell.Style) {
	x := 0
	state := -1
	for len(s) > 0 && x < width {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)

		if cluster == "\t" {
			next := (x/tabWidth + 1) * tabWidth
			for ; x < next && x < width; x++ {
				screen.SetContent(x, y, ' ', nil, style)
			}
			continue
		}
		if w == 0 {
			continue
		}
		if x+w > width {
			break
		}

		runes := []rune(cluster)
		screen.SetContent(x, y, runes[0], runes[1:], style)
		x += w
	}
}

// padRight pads s with spaces to width display columns.
func padRight(s string, width int) string {
	if n := uniseg.StringWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
