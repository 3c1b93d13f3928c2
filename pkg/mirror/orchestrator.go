package mirror

import (
	"errors"
	"image"
	"math/rand"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mirror/internal/log"
	"github.com/teslashibe/go-mirror/pkg/debug"
	"github.com/teslashibe/go-mirror/pkg/fade"
	"github.com/teslashibe/go-mirror/pkg/lighting"
	"github.com/teslashibe/go-mirror/pkg/playback"
	"github.com/teslashibe/go-mirror/pkg/presence"
)

// Playback is the video side of the installation.
type Playback interface {
	PlayRandom(dir string) (*playback.Session, error)
	Stop() error
	Poll() error
}

// Lights is the LED side of the installation. Both calls must return
// without waiting for the strip.
type Lights interface {
	ApplyGradient(colors [3]lighting.Color)
	AnimateOff()
}

// FrameSampler decodes a representative frame of a video asset.
type FrameSampler func(asset string) (image.Image, error)

// Options tunes the state machine.
type Options struct {
	ExitDelay   time.Duration
	DetectEvery int
	VideoDir    string
	Sample      lighting.SampleConfig
	Rand        *rand.Rand
}

// Deps are the collaborators driven by the orchestrator. Tracker and
// Sampler may be nil.
type Deps struct {
	Classifier presence.Classifier
	Tracker    presence.Tracker
	Playback   Playback
	Lights     Lights
	Fade       *fade.Overlay
	Sampler    FrameSampler
}

// Orchestrator is the IDLE/PLAYING state machine. Step is called once per
// frame from a single goroutine; Status may be read from any goroutine.
type Orchestrator struct {
	opts Options
	deps Deps

	sinceDetect int
	missed      int // consecutive entries refused for lack of assets

	mu      sync.RWMutex
	state   PresenceState
	seq     uint64
	session *playback.Session
	content image.Image
	entered int
	exited  int
	changed time.Time
}

// NewOrchestrator returns an idle orchestrator.
func NewOrchestrator(opts Options, deps Deps) *Orchestrator {
	if opts.DetectEvery < 1 {
		opts.DetectEvery = 1
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Sample.Attempts == 0 && opts.Sample.Fallback == lighting.Off {
		opts.Sample = lighting.DefaultSampleConfig()
	}
	if deps.Fade == nil {
		deps.Fade = fade.New(30)
	}
	return &Orchestrator{
		opts: opts,
		deps: deps,
		// Classify on the very first tick.
		sinceDetect: opts.DetectEvery,
	}
}

// Step runs one tick: sense, evaluate transitions, advance the fade.
func (o *Orchestrator) Step(frame gocv.Mat, now time.Time) Tick {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	det, present, src := o.sense(frame)
	tr := o.transition(frame, det, present, src, now)

	if o.state.Playing {
		o.deps.Fade.TowardTransparent()
	} else {
		o.deps.Fade.TowardOpaque()
	}

	t := Tick{
		Seq:        o.seq,
		State:      o.stateLocked(),
		Transition: tr,
		Present:    present,
		Source:     src,
		Alpha:      o.deps.Fade.Alpha(),
	}
	debug.PresenceLog("tick", "seq", t.Seq, "state", t.State, "present", t.Present, "source", t.Source, "alpha", t.Alpha)
	return t
}

// sense runs the classifier every DetectEvery ticks and lets an active
// track vouch for presence in between. The classifier overrules the
// tracker: a negative verdict drops the track. A lost track forces a
// classifier run on the same tick.
func (o *Orchestrator) sense(frame gocv.Mat) (presence.Detection, bool, Source) {
	if frame.Empty() {
		return presence.Detection{}, false, SourceNone
	}

	due := o.sinceDetect+1 >= o.opts.DetectEvery
	if o.state.Tracking {
		if !o.deps.Tracker.Update(frame) {
			o.state.Tracking = false
			due = true
			debug.PresenceLog("track lost")
		} else if !due {
			o.sinceDetect++
			return presence.Detection{}, true, SourceTracker
		}
	}

	if !due {
		o.sinceDetect++
		return presence.Detection{}, false, SourceSkipped
	}
	o.sinceDetect = 0

	det, ok := o.deps.Classifier.Classify(frame)
	if !ok && o.state.Tracking {
		debug.PresenceLog("classifier rejected track")
		o.dropTrack()
	}
	return det, ok, SourceClassifier
}

func (o *Orchestrator) transition(frame gocv.Mat, det presence.Detection, present bool, src Source, now time.Time) Transition {
	switch {
	case !o.state.Playing && present && src == SourceClassifier:
		if !o.enter(frame, det, now) {
			return TransitionNone
		}
		return TransitionEntered

	case o.state.Playing && present:
		o.state.LastSeen = now
		if src == SourceClassifier {
			// Re-anchor the track on the fresh detection.
			o.startTrack(frame, det)
		}
		o.poll()
		return TransitionNone

	case o.state.Playing && now.Sub(o.state.LastSeen) > o.opts.ExitDelay:
		o.exit(now)
		return TransitionExited

	case o.state.Playing:
		o.poll()
	}
	return TransitionNone
}

// enter starts a video and switches to PLAYING. Without any playable asset
// nothing changes and it reports false. A player that fails to spawn still
// enters PLAYING with lights and fade only.
func (o *Orchestrator) enter(frame gocv.Mat, det presence.Detection, now time.Time) bool {
	sess, err := o.deps.Playback.PlayRandom(o.opts.VideoDir)
	var spawnErr *playback.SpawnError
	if err != nil && !errors.As(err, &spawnErr) {
		o.missed++
		if o.missed == 1 || o.missed%100 == 0 {
			log.Warn("presence detected but nothing to play, staying idle",
				"dir", o.opts.VideoDir, "attempts", o.missed, "error", err)
		}
		return false
	}
	o.missed = 0

	o.deps.Fade.Snap()
	o.state.Playing = true
	o.state.LastSeen = now
	o.entered++
	o.changed = now

	colors := [3]lighting.Color{o.opts.Sample.Fallback, o.opts.Sample.Fallback, o.opts.Sample.Fallback}
	o.content = nil
	o.session = nil

	if err != nil {
		log.Warn("player failed to start, continuing with lights only", "error", err)
	} else {
		o.session = sess
		if img := o.sample(sess.Asset); img != nil {
			o.content = img
			colors = lighting.SampleColors(img, o.opts.Rand, o.opts.Sample)
		}
	}
	o.deps.Lights.ApplyGradient(colors)
	o.startTrack(frame, det)

	log.Info("presence confirmed", "state", StatePlaying, "asset", assetOf(o.session))
	return true
}

func (o *Orchestrator) exit(now time.Time) {
	o.state.Playing = false
	o.state.Tracking = false
	o.exited++
	o.changed = now

	if err := o.deps.Playback.Stop(); err != nil {
		log.Warn("playback stop failed", "error", err)
	}
	o.deps.Lights.AnimateOff()
	o.dropTrack()
	o.session = nil
	o.content = nil

	log.Info("presence lost", "state", StateIdle, "absent", now.Sub(o.state.LastSeen).Round(time.Millisecond))
}

func (o *Orchestrator) startTrack(frame gocv.Mat, det presence.Detection) {
	if o.deps.Tracker == nil || det.W <= 0 || det.H <= 0 {
		return
	}
	o.state.Tracking = o.deps.Tracker.Init(frame, det.Rect(frame.Cols(), frame.Rows()))
}

func (o *Orchestrator) dropTrack() {
	o.state.Tracking = false
	if o.deps.Tracker != nil {
		o.deps.Tracker.Reset()
	}
}

func (o *Orchestrator) sample(asset string) image.Image {
	if o.deps.Sampler == nil {
		return nil
	}
	img, err := o.deps.Sampler(asset)
	if err != nil {
		log.Warn("first frame unavailable, using fallback colors", "asset", asset, "error", err)
		return nil
	}
	return img
}

func (o *Orchestrator) poll() {
	if err := o.deps.Playback.Poll(); err != nil {
		log.Warn("playback poll", "error", err)
		o.session = nil
	}
}

func (o *Orchestrator) stateLocked() State {
	if o.state.Playing {
		return StatePlaying
	}
	return StateIdle
}

// State returns the current mode.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stateLocked()
}

// Presence returns a copy of the debounce state.
func (o *Orchestrator) Presence() PresenceState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Content is the first frame of the current video, or nil.
func (o *Orchestrator) Content() image.Image {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.content
}

// Status snapshots the orchestrator for reporting.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var sess *playback.Session
	if o.session != nil {
		s := *o.session
		sess = &s
	}
	return Status{
		State:      o.stateLocked(),
		LastSeen:   o.state.LastSeen,
		Tracking:   o.state.Tracking,
		Alpha:      o.deps.Fade.Alpha(),
		Ticks:      o.seq,
		Session:    sess,
		Entered:    o.entered,
		Exited:     o.exited,
		LastChange: o.changed,
	}
}

func assetOf(s *playback.Session) string {
	if s == nil {
		return ""
	}
	return s.Asset
}
