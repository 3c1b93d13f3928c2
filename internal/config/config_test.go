package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.FrameRate != 30 {
		t.Errorf("FrameRate = %d, want 30", cfg.FrameRate)
	}
	if len(cfg.LEDColor) != 3 {
		t.Errorf("LEDColor = %v, want 3 components", cfg.LEDColor)
	}
	if cfg.Tracker != "csrt" || !cfg.PlayerLoop {
		t.Errorf("Tracker/PlayerLoop = %q/%v, want csrt/true", cfg.Tracker, cfg.PlayerLoop)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ExitDelaySeconds != 5 {
		t.Errorf("ExitDelaySeconds = %v, want 5", cfg.ExitDelaySeconds)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"exit_delay_seconds": 2,
		"frame_rate": 15,
		"fade_steps": 10,
		"video_directory": "/srv/videos",
		"led_count": 120,
		"led_color": [10, 20, 30],
		"led_transition_delay_seconds": 0.05,
		"player": "mpv",
		"player_loop": false,
		"tracker": "mil",
		"camera": {"device": 2}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ExitDelay() != 2*time.Second {
		t.Errorf("ExitDelay = %v, want 2s", cfg.ExitDelay())
	}
	if cfg.PlayerLoop || cfg.Tracker != "mil" {
		t.Errorf("PlayerLoop/Tracker = %v/%q, want false/mil", cfg.PlayerLoop, cfg.Tracker)
	}
	if cfg.FrameRate != 15 || cfg.FadeSteps != 10 {
		t.Errorf("FrameRate/FadeSteps = %d/%d, want 15/10", cfg.FrameRate, cfg.FadeSteps)
	}
	if cfg.VideoDirectory != "/srv/videos" {
		t.Errorf("VideoDirectory = %q", cfg.VideoDirectory)
	}
	if cfg.LEDCount != 120 {
		t.Errorf("LEDCount = %d, want 120", cfg.LEDCount)
	}
	if cfg.LEDColor[2] != 30 {
		t.Errorf("LEDColor = %v", cfg.LEDColor)
	}
	if cfg.LEDStepDelay() != 50*time.Millisecond {
		t.Errorf("LEDStepDelay = %v, want 50ms", cfg.LEDStepDelay())
	}
	if cfg.Player != "mpv" {
		t.Errorf("Player = %q, want mpv", cfg.Player)
	}
	if cfg.Camera.Device != "2" {
		t.Errorf("Camera.Device = %q, want 2", cfg.Camera.Device)
	}
	// Untouched nested keys keep their defaults.
	if cfg.Camera.Width != 640 {
		t.Errorf("Camera.Width = %d, want default 640", cfg.Camera.Width)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("MIRROR_FRAME_RATE", "24")
	t.Setenv("MIRROR_CAMERA_DEVICE", "1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FrameRate != 24 {
		t.Errorf("FrameRate = %d, want 24", cfg.FrameRate)
	}
	if cfg.Camera.Device != "1" {
		t.Errorf("Camera.Device = %q, want 1", cfg.Camera.Device)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"frame_rate": 0}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "frame_rate" {
		t.Errorf("Field = %q, want frame_rate", cfgErr.Field)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero exit delay", func(c *Config) { c.ExitDelaySeconds = 0 }, "exit_delay_seconds"},
		{"frame rate too high", func(c *Config) { c.FrameRate = 500 }, "frame_rate"},
		{"no fade steps", func(c *Config) { c.FadeSteps = 0 }, "fade_steps"},
		{"no detect interval", func(c *Config) { c.DetectEvery = 0 }, "detect_every"},
		{"empty video dir", func(c *Config) { c.VideoDirectory = "" }, "video_directory"},
		{"no leds", func(c *Config) { c.LEDCount = 0 }, "led_count"},
		{"short color", func(c *Config) { c.LEDColor = []int{1, 2} }, "led_color"},
		{"color out of range", func(c *Config) { c.LEDColor = []int{1, 2, 300} }, "led_color"},
		{"unknown classifier", func(c *Config) { c.Classifier = "pose" }, "classifier"},
		{"unknown player", func(c *Config) { c.Player = "mplayer" }, "player"},
		{"unknown tracker", func(c *Config) { c.Tracker = "kcf" }, "tracker"},
		{"no camera", func(c *Config) { c.Camera.Device = "" }, "camera.device"},
		{"bad web port", func(c *Config) { c.Web.Enabled = true; c.Web.Port = 0 }, "web.port"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tc.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tc.field)
			}
		})
	}
}

func TestFrameBudget(t *testing.T) {
	cfg := Default()
	cfg.FrameRate = 20
	if got := cfg.FrameBudget(); got != 50*time.Millisecond {
		t.Errorf("FrameBudget = %v, want 50ms", got)
	}
}
