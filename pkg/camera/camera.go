package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mirror/internal/log"
)

var (
	// ErrInvalidConfig indicates Config.Validate failed.
	ErrInvalidConfig = errors.New("camera: invalid config")

	// ErrNotOpened indicates the device opened but reports no stream.
	ErrNotOpened = errors.New("camera: device not opened")
)

// Camera is an open capture device. Read and Close may be called from
// different goroutines.
type Camera struct {
	cfg Config

	mu       sync.Mutex
	vc       *gocv.VideoCapture
	frames   int
	failures int
}

// Open opens cfg.Device, retrying with exponential backoff up to
// cfg.Retries attempts or until ctx is done.
func Open(ctx context.Context, cfg Config) (*Camera, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}

	attempt := 0
	vc, err := backoff.Retry(ctx, func() (*gocv.VideoCapture, error) {
		attempt++
		return openDevice(cfg)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.Retries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("camera open failed, retrying", "device", cfg.Device, "attempt", attempt, "next", next, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("camera: open %s after %d attempts: %w", cfg.Device, attempt, err)
	}

	log.Info("camera opened", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height)
	return &Camera{cfg: cfg, vc: vc}, nil
}

func openDevice(cfg Config) (*gocv.VideoCapture, error) {
	vc, err := gocv.OpenVideoCapture(cfg.device())
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, ErrNotOpened
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	return vc, nil
}

// Config returns the settings the camera was opened with.
func (c *Camera) Config() Config {
	return c.cfg
}

// Read captures the next frame into dst. It returns false when no frame
// could be read; dst is then left empty or stale and must not be trusted.
func (c *Camera) Read(dst *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return false
	}
	if ok := c.vc.Read(dst); !ok || dst.Empty() {
		c.failures++
		return false
	}
	c.frames++
	return true
}

// Stats returns good and failed read counts.
func (c *Camera) Stats() (frames, failures int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames, c.failures
}

// Close releases the device. Safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}
