package lighting

import (
	"sync"
	"time"

	"github.com/teslashibe/go-mirror/internal/log"
)

type commandKind int

const (
	cmdGradient commandKind = iota + 1
	cmdOff
)

func (k commandKind) String() string {
	switch k {
	case cmdGradient:
		return "gradient"
	case cmdOff:
		return "off"
	default:
		return "none"
	}
}

type command struct {
	kind   commandKind
	colors [3]Color
}

// Controller serializes every strip write through one worker goroutine.
//
// Commands land in a single-slot mailbox: posting never blocks, and a newer
// command overwrites an older one that the worker has not picked up yet.
// A running wipe checks the mailbox between steps and yields to whatever
// arrived, so a fresh gradient is never held up by a fade-out in progress.
type Controller struct {
	strip     Strip
	stepDelay time.Duration

	// Worker-owned LED buffer.
	buf Frame

	mu       sync.Mutex
	pending  *command
	closed   bool
	last     commandKind
	failures int

	wake chan struct{}
	done chan struct{}
}

// NewController starts the worker for strip. stepDelay is the pause between
// wipe steps.
func NewController(strip Strip, stepDelay time.Duration) *Controller {
	c := &Controller{
		strip:     strip,
		stepDelay: stepDelay,
		buf:       NewFrame(strip.Len()),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go c.run()
	return c
}

// ApplyGradient renders the three-color gradient and commits it once.
func (c *Controller) ApplyGradient(colors [3]Color) {
	c.post(command{kind: cmdGradient, colors: colors})
}

// AnimateOff wipes the strip to black from both ends toward the center.
// It returns immediately; the wipe runs on the worker.
func (c *Controller) AnimateOff() {
	c.post(command{kind: cmdOff})
}

// LastCommand names the most recently started command ("gradient", "off" or "none").
func (c *Controller) LastCommand() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last.String()
}

// WriteFailures counts strip writes that returned an error.
func (c *Controller) WriteFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// Close stops the worker, abandoning any pending command, then writes an
// all-off frame synchronously and closes the strip.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = nil
	c.mu.Unlock()

	c.notify()
	<-c.done

	off := NewFrame(c.strip.Len())
	werr := c.strip.Write(off)
	cerr := c.strip.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func (c *Controller) post(cmd command) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = &cmd
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// next blocks until a command is pending or the controller is closed.
func (c *Controller) next() (command, bool) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return command{}, false
		}
		if p := c.pending; p != nil {
			c.pending = nil
			c.last = p.kind
			c.mu.Unlock()
			return *p, true
		}
		c.mu.Unlock()
		<-c.wake
	}
}

// superseded reports whether the current command should yield.
func (c *Controller) superseded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.pending != nil
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		cmd, ok := c.next()
		if !ok {
			return
		}
		switch cmd.kind {
		case cmdGradient:
			c.buf = Gradient(len(c.buf), cmd.colors)
			c.commit()
		case cmdOff:
			c.wipe()
		}
	}
}

func (c *Controller) wipe() {
	steps := WipeSteps(len(c.buf))
	for offset := 0; offset < steps; offset++ {
		if c.superseded() {
			return
		}
		WipeStep(c.buf, offset)
		c.commit()

		if c.stepDelay <= 0 {
			continue
		}
		t := time.NewTimer(c.stepDelay)
		select {
		case <-t.C:
		case <-c.wake:
			t.Stop()
			// Re-arm so next() does not block on a consumed token.
			c.notify()
		}
	}
}

func (c *Controller) commit() {
	if err := c.strip.Write(c.buf); err != nil {
		c.mu.Lock()
		c.failures++
		n := c.failures
		c.mu.Unlock()
		if n == 1 || n%100 == 0 {
			log.Warn("led write failed", "error", err, "failures", n)
		}
	}
}
