package mirror

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-mirror/internal/config"
	"github.com/teslashibe/go-mirror/pkg/lighting"
	"github.com/teslashibe/go-mirror/pkg/playback"
	"github.com/teslashibe/go-mirror/pkg/web"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FrameRate = 0

	_, err := New(cfg, Flags{})
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *config.ConfigError", err)
	}
}

func TestPlayerPresetLoop(t *testing.T) {
	tests := []struct {
		player string
		loop   bool
	}{
		{"vlc", true},
		{"vlc", false},
		{"mpv", true},
		{"mpv", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s loop=%v", tt.player, tt.loop), func(t *testing.T) {
			cfg := config.Default()
			cfg.Player = tt.player
			cfg.PlayerLoop = tt.loop

			app, err := New(cfg, Flags{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			p, err := app.playerPreset()
			if err != nil {
				t.Fatalf("playerPreset: %v", err)
			}
			if p.Name != tt.player || p.NativeLoop != tt.loop {
				t.Errorf("preset = %s native_loop=%v", p.Name, p.NativeLoop)
			}
		})
	}
}

func TestPresenceConfigMapping(t *testing.T) {
	tests := []struct {
		kind      string
		wantModel string
		wantConf  float64
	}{
		{"hog", "", 0},
		{"yunet", "models/face.onnx", 0.7},
		{"yolo", "models/person.onnx", 0.4},
		{"motion", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg := config.Default()
			cfg.Classifier = tt.kind
			cfg.YuNet = config.ModelConfig{ModelPath: "models/face.onnx", ConfidenceThresh: 0.7}
			cfg.YOLO = config.ModelConfig{ModelPath: "models/person.onnx", ConfidenceThresh: 0.4}
			cfg.HOG.ResizeWidth = 320

			app, err := New(cfg, Flags{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			pc := app.presenceConfig()
			if pc.Kind != tt.kind {
				t.Errorf("Kind = %q", pc.Kind)
			}
			if pc.ResizeWidth != 320 {
				t.Errorf("ResizeWidth = %d", pc.ResizeWidth)
			}
			if tt.wantModel != "" && (pc.ModelPath != tt.wantModel || pc.ConfidenceThresh != tt.wantConf) {
				t.Errorf("model = %q/%v, want %q/%v", pc.ModelPath, pc.ConfidenceThresh, tt.wantModel, tt.wantConf)
			}
		})
	}
}

func TestSampleConfigUsesLEDColor(t *testing.T) {
	cfg := config.Default()
	cfg.LEDColor = []int{1, 2, 3}
	cfg.LED.SampleAttempts = 50
	app, err := New(cfg, Flags{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sc := app.sampleConfig()
	if sc.Fallback != (lighting.Color{R: 1, G: 2, B: 3}) {
		t.Errorf("Fallback = %v", sc.Fallback)
	}
	if sc.Attempts != 50 {
		t.Errorf("Attempts = %d", sc.Attempts)
	}
}

func TestCameraConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.Camera.Device = "/dev/video2"
	cfg.Camera.Width = 320
	cfg.Camera.Height = 240
	app, err := New(cfg, Flags{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cc := app.cameraConfig()
	if cc.Device != "/dev/video2" || cc.Width != 320 || cc.Height != 240 {
		t.Errorf("camera config = %+v", cc)
	}
	if errs := cc.Validate(); len(errs) != 0 {
		t.Errorf("mapped camera config invalid: %v", errs)
	}
}

func TestOpenStripDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.LEDCount = 12
	app, err := New(cfg, Flags{NoLEDs: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	strip := app.openStrip()
	if _, ok := strip.(*lighting.MemoryStrip); !ok {
		t.Fatalf("strip = %T, want *lighting.MemoryStrip", strip)
	}
	if strip.Len() != 12 {
		t.Errorf("Len = %d", strip.Len())
	}
}

func TestFillStatus(t *testing.T) {
	id := uuid.New()
	st := Status{
		State:    StatePlaying,
		Tracking: true,
		Alpha:    40,
		Ticks:    99,
		Entered:  3,
		Exited:   2,
		Session:  &playback.Session{ID: id, Asset: "/videos/a.mp4", Restarts: 1},
		LastSeen: time.Unix(100, 0),
	}
	var ws web.Status
	ws.Asset = "stale"
	fillStatus(&ws, st)

	if ws.State != "playing" || !ws.Tracking || ws.Alpha != 40 || ws.Ticks != 99 {
		t.Errorf("status = %+v", ws)
	}
	if ws.SessionID != id.String() || ws.Asset != "/videos/a.mp4" || ws.Restarts != 1 {
		t.Errorf("session fields = %q %q %d", ws.SessionID, ws.Asset, ws.Restarts)
	}

	fillStatus(&ws, Status{State: StateIdle})
	if ws.Asset != "" || ws.SessionID != "" {
		t.Error("session fields should clear when idle")
	}
}

func TestShutdownWithoutInit(t *testing.T) {
	app, err := New(config.Default(), Flags{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	app.Shutdown()
	app.Shutdown()
}
