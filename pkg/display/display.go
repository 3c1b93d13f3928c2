// Package display owns the fullscreen output window.
package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Key codes returned by WaitKey
const (
	KeyEsc = 27
	KeyQ   = 'q'
)

// Options configures the window.
type Options struct {
	Title      string
	Fullscreen bool
}

// Window is a gocv HighGUI window.
type Window struct {
	mu     sync.Mutex
	win    *gocv.Window
	closed bool
	quit   bool
}

// Open creates the window. It must be called from the goroutine that will
// call Show and PollQuit.
func Open(opts Options) *Window {
	if opts.Title == "" {
		opts.Title = "mirror"
	}
	w := gocv.NewWindow(opts.Title)
	if opts.Fullscreen {
		w.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen)
	}
	return &Window{win: w}
}

// Show draws img.
func (w *Window) Show(img gocv.Mat) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || img.Empty() {
		return
	}
	w.win.IMShow(img)
}

// PollQuit pumps window events for 1ms and reports whether the user asked
// to quit (q, ESC, or closing the window). Once true it stays true.
func (w *Window) PollQuit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.quit {
		return true
	}
	if IsQuitKey(w.win.WaitKey(1)) || !w.win.IsOpen() {
		w.quit = true
	}
	return w.quit
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.win.Close()
}

// IsQuitKey reports whether a WaitKey result is a quit request.
func IsQuitKey(key int) bool {
	if key < 0 {
		return false
	}
	switch key & 0xff {
	case KeyEsc, KeyQ, 'Q':
		return true
	}
	return false
}
