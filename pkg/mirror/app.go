// Package mirror ties sensing, playback, lighting and the fade overlay into
// the installation's IDLE/PLAYING loop.
package mirror

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mirror/internal/config"
	"github.com/teslashibe/go-mirror/internal/log"
	"github.com/teslashibe/go-mirror/pkg/camera"
	"github.com/teslashibe/go-mirror/pkg/display"
	"github.com/teslashibe/go-mirror/pkg/fade"
	"github.com/teslashibe/go-mirror/pkg/lighting"
	"github.com/teslashibe/go-mirror/pkg/playback"
	"github.com/teslashibe/go-mirror/pkg/presence"
	"github.com/teslashibe/go-mirror/pkg/web"
)

// Flags are command-line switches layered over the config file.
type Flags struct {
	Windowed bool // run in a window instead of fullscreen
	NoLEDs   bool // never touch SPI; use an in-memory strip
}

// App is the installation run context.
// It owns every device handle and releases them in Shutdown.
type App struct {
	cfg   config.Config
	flags Flags

	camera     *camera.Camera
	window     *display.Window
	classifier presence.Classifier
	tracker    *presence.CVTracker // nil when tracking is off
	player     *playback.Controller
	lights     *lighting.Controller
	overlay    *fade.Overlay
	orch       *Orchestrator
	webServer  *web.Server

	content gocv.Mat
	hasMat  bool

	shutdownOnce sync.Once
}

// New validates cfg and returns an App ready for Init.
func New(cfg config.Config, flags Flags) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{cfg: cfg, flags: flags}, nil
}

// Init opens every device. A camera that cannot be opened is fatal; a
// missing LED strip degrades to an in-memory strip.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	log.Info("mirror starting",
		"classifier", a.cfg.Classifier,
		"player", a.cfg.Player,
		"videos", a.cfg.VideoDirectory,
		"exit_delay", a.cfg.ExitDelay(),
		"fps", a.cfg.FrameRate,
	)

	cam, err := camera.Open(ctx, a.cameraConfig())
	if err != nil {
		return err
	}
	a.camera = cam

	classifier, err := presence.New(a.presenceConfig())
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	a.classifier = classifier
	if a.cfg.Tracker != "none" {
		tr, err := presence.NewTracker(a.cfg.Tracker)
		if err != nil {
			return fmt.Errorf("tracker: %w", err)
		}
		a.tracker = tr
	}

	p, err := a.playerPreset()
	if err != nil {
		return err
	}
	a.player = playback.New(playback.Options{
		Player: p,
		Grace:  a.cfg.PlayerGraceDuration(),
	})

	a.lights = lighting.NewController(a.openStrip(), a.cfg.LEDStepDelay())
	a.overlay = fade.New(a.cfg.FadeSteps)

	deps := Deps{
		Classifier: a.classifier,
		Playback:   a.player,
		Lights:     a.lights,
		Fade:       a.overlay,
		Sampler:    playback.FirstImage,
	}
	if a.tracker != nil {
		deps.Tracker = a.tracker
	}
	a.orch = NewOrchestrator(Options{
		ExitDelay:   a.cfg.ExitDelay(),
		DetectEvery: a.cfg.DetectEvery,
		VideoDir:    a.cfg.VideoDirectory,
		Sample:      a.sampleConfig(),
	}, deps)

	a.window = display.Open(display.Options{Title: "mirror", Fullscreen: !a.flags.Windowed})
	a.setContent(nil)

	if a.cfg.Web.Enabled {
		a.webServer = web.NewServer(a.cfg.Web.Port)
		a.webServer.StartAsync(ctx)
		a.webServer.AddEvent("info", "mirror started")
	}

	return nil
}

// Run is the fixed-rate loop: poll quit, capture, step, render, publish,
// then sleep out the rest of the frame budget. It returns nil when ctx is
// cancelled or the user quits.
func (a *App) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()
	empty := gocv.NewMat()
	defer empty.Close()
	out := gocv.NewMat()
	defer out.Close()

	budget := a.cfg.FrameBudget()
	log.Info("mirror running", "frame_budget", budget)

	for {
		start := time.Now()
		if ctx.Err() != nil {
			return nil
		}
		if a.window.PollQuit() {
			log.Info("quit requested")
			return nil
		}

		sensed := empty
		if a.camera.Read(&frame) {
			sensed = frame
		}

		tick := a.orch.Step(sensed, start)
		if tick.Transition == TransitionEntered {
			a.setContent(a.orch.Content())
		}

		a.overlay.Render(a.content, &out)
		a.window.Show(out)

		a.publish(tick)

		remaining := budget - time.Since(start)
		if remaining <= 0 {
			continue
		}
		t := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// Shutdown releases resources in order: camera, player, LEDs (blanked),
// display. Safe to call more than once and after a partial Init.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		if a.camera != nil {
			if err := a.camera.Close(); err != nil {
				log.Warn("camera close", "error", err)
			}
		}
		if a.player != nil {
			a.player.Stop()
		}
		if a.lights != nil {
			if err := a.lights.Close(); err != nil {
				log.Warn("led blank on shutdown", "error", err)
			}
		}
		if a.window != nil {
			a.window.Close()
		}
		if a.classifier != nil {
			a.classifier.Close()
		}
		if a.tracker != nil {
			a.tracker.Close()
		}
		if a.hasMat {
			a.content.Close()
			a.hasMat = false
		}
		if a.webServer != nil {
			a.webServer.Shutdown()
		}
		log.Info("mirror stopped")
	})
}

// playerPreset resolves the configured preset. With player_loop off the player
// runs each video once and the controller restarts it.
func (a *App) playerPreset() (playback.Player, error) {
	p, err := playback.PlayerByName(a.cfg.Player, a.cfg.PlayerBinary)
	if err != nil {
		return playback.Player{}, err
	}
	if !a.cfg.PlayerLoop {
		p = p.WithoutLoop()
	}
	return p, nil
}

func (a *App) cameraConfig() camera.Config {
	cc := camera.DefaultConfig()
	cc.Device = a.cfg.Camera.Device
	if a.cfg.Camera.Width > 0 {
		cc.Width = a.cfg.Camera.Width
	}
	if a.cfg.Camera.Height > 0 {
		cc.Height = a.cfg.Camera.Height
	}
	if a.cfg.Camera.Retries > 0 {
		cc.Retries = a.cfg.Camera.Retries
	}
	return cc
}

func (a *App) presenceConfig() presence.Config {
	pc := presence.DefaultConfig()
	pc.Kind = a.cfg.Classifier
	pc.ResizeWidth = a.cfg.HOG.ResizeWidth
	pc.PixelThreshold = a.cfg.Motion.PixelThreshold
	pc.MinChangeRatio = a.cfg.Motion.MinChangeRatio
	switch a.cfg.Classifier {
	case "yunet":
		pc.ModelPath = a.cfg.YuNet.ModelPath
		pc.ConfidenceThresh = a.cfg.YuNet.ConfidenceThresh
	case "yolo":
		pc.ModelPath = a.cfg.YOLO.ModelPath
		pc.ConfidenceThresh = a.cfg.YOLO.ConfidenceThresh
	}
	return pc
}

func (a *App) sampleConfig() lighting.SampleConfig {
	sc := lighting.DefaultSampleConfig()
	sc.Fallback = lighting.FromInts(a.cfg.LEDColor)
	if a.cfg.LED.SampleAttempts > 0 {
		sc.Attempts = a.cfg.LED.SampleAttempts
	}
	if a.cfg.LED.SampleMinSpread > 0 {
		sc.MinSpread = a.cfg.LED.SampleMinSpread
	}
	return sc
}

func (a *App) openStrip() lighting.Strip {
	if !a.cfg.LED.Enabled || a.flags.NoLEDs {
		log.Info("led strip disabled, using memory strip", "leds", a.cfg.LEDCount)
		return lighting.NewMemoryStrip(a.cfg.LEDCount)
	}
	strip, err := lighting.OpenSPI(lighting.SPIConfig{
		Port:       a.cfg.LED.SPIPort,
		Count:      a.cfg.LEDCount,
		FreqKHz:    a.cfg.LED.FreqKHz,
		Brightness: a.cfg.LED.Brightness,
	})
	if err != nil {
		log.Warn("led strip unavailable, using memory strip", "error", err)
		return lighting.NewMemoryStrip(a.cfg.LEDCount)
	}
	log.Info("led strip opened", "leds", a.cfg.LEDCount, "port", a.cfg.LED.SPIPort)
	return strip
}

// setContent replaces the frame shown under the overlay: the video's first
// frame while playing, black otherwise. It is kept through the exit fade so
// the picture darkens instead of cutting out.
func (a *App) setContent(img image.Image) {
	var next gocv.Mat
	ok := false
	if img != nil {
		m, err := gocv.ImageToMatRGB(img)
		if err != nil {
			log.Warn("content frame conversion failed", "error", err)
		} else {
			next, ok = m, true
		}
	}
	if !ok {
		cc := a.cameraConfig()
		next = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), cc.Height, cc.Width, gocv.MatTypeCV8UC3)
	}
	if a.hasMat {
		a.content.Close()
	}
	a.content, a.hasMat = next, true
}

func (a *App) publish(tick Tick) {
	if a.webServer == nil {
		return
	}
	// Once a second, plus every transition.
	if tick.Transition == TransitionNone && tick.Seq%uint64(a.cfg.FrameRate) != 0 {
		return
	}

	st := a.orch.Status()
	frames, failures := a.camera.Stats()
	a.webServer.UpdateStatus(func(s *web.Status) {
		fillStatus(s, st)
		s.LEDCommand = a.lights.LastCommand()
		s.LEDWriteFailures = a.lights.WriteFailures()
		s.CameraFrames = frames
		s.CameraFailures = failures
	})

	switch tick.Transition {
	case TransitionEntered:
		msg := "presence confirmed"
		if st.Session != nil {
			msg += ", playing " + st.Session.Asset
		}
		a.webServer.AddEvent("transition", msg)
	case TransitionExited:
		a.webServer.AddEvent("transition", "presence lost, fading out")
	}
}

func fillStatus(s *web.Status, st Status) {
	s.State = st.State.String()
	s.Tracking = st.Tracking
	s.Alpha = st.Alpha
	s.LastSeen = st.LastSeen
	s.LastChange = st.LastChange
	s.Ticks = st.Ticks
	s.Entered = st.Entered
	s.Exited = st.Exited
	s.SessionID, s.Asset, s.Restarts = "", "", 0
	if st.Session != nil {
		s.SessionID = st.Session.ID.String()
		s.Asset = st.Session.Asset
		s.Restarts = st.Session.Restarts
	}
}
