package camera

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   int
	}{
		{"ok", func(c *Config) {}, 0},
		{"no device", func(c *Config) { c.Device = "" }, 1},
		{"tiny width", func(c *Config) { c.Width = 10 }, 1},
		{"huge height", func(c *Config) { c.Height = 10000 }, 1},
		{"no retries", func(c *Config) { c.Retries = 0 }, 1},
		{"negative interval", func(c *Config) { c.InitialInterval = -time.Second }, 1},
		{"several", func(c *Config) { c.Width = 0; c.Height = 0 }, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if errs := cfg.Validate(); len(errs) != tt.want {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.want)
			}
		})
	}
}

func TestDevice(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"0", 0},
		{"2", 2},
		{"/dev/video0", "/dev/video0"},
		{"rtsp://cam.local/stream", "rtsp://cam.local/stream"},
	}
	for _, tt := range tests {
		cfg := Config{Device: tt.in}
		if got := cfg.device(); got != tt.want {
			t.Errorf("device(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}

func TestOpenInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retries = 0
	_, err := Open(context.Background(), cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestOpenGivesUp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "/nonexistent/video-device"
	cfg.Retries = 2
	cfg.InitialInterval = 10 * time.Millisecond
	cfg.MaxInterval = 20 * time.Millisecond

	start := time.Now()
	cam, err := Open(context.Background(), cfg)
	if err == nil {
		cam.Close()
		t.Fatal("expected open to fail")
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("Open took %v with 2 retries", time.Since(start))
	}
}

func TestOpenCancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "/nonexistent/video-device"
	cfg.Retries = 100
	cfg.InitialInterval = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := Open(ctx, cfg); err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestClosedCameraRead(t *testing.T) {
	c := &Camera{cfg: DefaultConfig()}
	m := gocv.NewMat()
	defer m.Close()

	if c.Read(&m) {
		t.Error("Read on a closed camera should fail")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
