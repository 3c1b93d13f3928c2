package lighting

import (
	"errors"
	"sync"

	"github.com/teslashibe/go-mirror/pkg/debug"
)

// ErrStripClosed is returned when writing to a closed strip.
var ErrStripClosed = errors.New("lighting: strip closed")

// Strip is an ordered run of RGB LEDs. Write commits (shows) the whole
// frame; there is no read-back.
type Strip interface {
	Len() int
	Write(f Frame) error
	Close() error
}

// MemoryStrip is a strip without hardware. It keeps the last frame and a
// write count, which is all the dashboard and the tests need.
type MemoryStrip struct {
	mu     sync.Mutex
	n      int
	last   Frame
	writes int
	closed bool
}

// NewMemoryStrip returns an unlit strip of n LEDs.
func NewMemoryStrip(n int) *MemoryStrip {
	return &MemoryStrip{n: n, last: NewFrame(n)}
}

// Len returns the LED count.
func (s *MemoryStrip) Len() int {
	return s.n
}

// Write stores a copy of f.
func (s *MemoryStrip) Write(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStripClosed
	}
	s.last = f.Clone()
	s.writes++
	debug.Log("led frame", "writes", s.writes, "leds", len(f), "off", f.IsOff())
	return nil
}

// Last returns a copy of the most recent frame.
func (s *MemoryStrip) Last() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Clone()
}

// Writes returns how many frames were committed.
func (s *MemoryStrip) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Close marks the strip closed.
func (s *MemoryStrip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
