// Package playback runs the external video player.
//
// At most one player process is alive at a time. Starting a new video
// terminates the previous one first (SIGTERM, then SIGKILL after a grace
// period). Process exit is observed through a wait goroutine, so checking
// liveness never blocks the frame loop.
package playback

import (
	"fmt"
	"math/rand"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-mirror/internal/log"
)

// DefaultGrace is how long a player gets to exit after SIGTERM.
const DefaultGrace = 2 * time.Second

// Session describes the video currently playing.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Asset     string    `json:"asset"`
	StartedAt time.Time `json:"started_at"`
	Restarts  int       `json:"restarts"`
}

// CommandFunc builds the process for a player invocation.
type CommandFunc func(name string, args ...string) *exec.Cmd

// Options configures a Controller.
type Options struct {
	Player  Player
	Grace   time.Duration
	Rand    *rand.Rand
	Command CommandFunc
}

type process struct {
	cmd     *exec.Cmd
	started time.Time
	done    chan struct{}
	err     error // valid after done is closed
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Controller owns the player process.
type Controller struct {
	player  Player
	grace   time.Duration
	rng     *rand.Rand
	command CommandFunc

	mu      sync.Mutex
	proc    *process
	session *Session
}

// New creates a Controller. Zero-valued options fall back to VLC, the
// default grace period, a time-seeded rng and exec.Command.
func New(opts Options) *Controller {
	if opts.Player.Binary == "" {
		opts.Player = VLC()
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Command == nil {
		opts.Command = exec.Command
	}
	return &Controller{
		player:  opts.Player,
		grace:   opts.Grace,
		rng:     opts.Rand,
		command: opts.Command,
	}
}

// Player returns the configured preset.
func (c *Controller) Player() Player {
	return c.player
}

// PlayRandom stops any current video and starts a random asset from dir.
// If dir has no playable files nothing is stopped or spawned.
func (c *Controller) PlayRandom(dir string) (*Session, error) {
	assets, err := ListAssets(dir)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	asset := assets[c.rng.Intn(len(assets))]

	c.stopLocked()

	proc, err := c.start(asset)
	if err != nil {
		return nil, err
	}
	c.proc = proc
	c.session = &Session{
		ID:        uuid.New(),
		Asset:     asset,
		StartedAt: time.Now(),
	}
	log.Info("playback started", "player", c.player.Name, "asset", asset, "session", c.session.ID)

	s := *c.session
	return &s, nil
}

// Stop terminates the current video. Calling it with nothing playing is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return nil
}

// Poll checks whether the player is still running. It never blocks.
//
// A player without native looping is restarted on the same asset, but at
// most once per grace period measured from its last start, so a player
// that dies on launch cannot respawn every frame. A looping player that
// exits on its own ends the session with ErrPlayerExited.
func (c *Controller) Poll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil || !c.proc.exited() {
		return nil
	}

	if c.player.NativeLoop {
		exitErr := c.proc.err
		c.proc = nil
		asset := c.session.Asset
		c.session = nil
		return fmt.Errorf("%w: %s (%v)", ErrPlayerExited, asset, exitErr)
	}

	if time.Since(c.proc.started) < c.grace {
		return nil
	}
	c.proc = nil

	proc, err := c.start(c.session.Asset)
	if err != nil {
		c.session = nil
		return err
	}
	c.proc = proc
	c.session.Restarts++
	log.Debug("playback restarted", "asset", c.session.Asset, "restarts", c.session.Restarts)
	return nil
}

// Session returns a copy of the current session, or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Alive reports whether a player process is running.
func (c *Controller) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proc != nil && !c.proc.exited()
}

func (c *Controller) start(asset string) (*process, error) {
	cmd := c.command(c.player.Binary, c.player.Args(asset)...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Binary: c.player.Binary, Asset: asset, Cause: err}
	}

	p := &process{cmd: cmd, started: time.Now(), done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (c *Controller) stopLocked() {
	if c.proc == nil {
		c.session = nil
		return
	}
	p := c.proc
	c.proc = nil

	asset := ""
	if c.session != nil {
		asset = c.session.Asset
	}
	c.session = nil

	if p.exited() {
		return
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Debug("playback: sigterm failed", "error", err)
	}

	t := time.NewTimer(c.grace)
	defer t.Stop()
	select {
	case <-p.done:
	case <-t.C:
		log.Warn("playback: player ignored SIGTERM, killing", "asset", asset, "grace", c.grace)
		p.cmd.Process.Kill()
		<-p.done
	}
	log.Info("playback stopped", "asset", asset)
}
