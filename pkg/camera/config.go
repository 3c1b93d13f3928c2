// Package camera opens and reads the presence camera.
// Opening is retried with exponential backoff because USB cameras on a
// freshly booted kiosk often enumerate a few seconds after the service starts.
package camera

import (
	"strconv"
	"time"
)

// Config holds camera settings.
type Config struct {
	// Device is a numeric index ("0") or a device path / stream URL.
	Device string `json:"device"`

	// Requested capture size. The driver may pick the nearest mode.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Retries bounds open attempts, including the first.
	Retries int `json:"retries"`

	// Backoff between attempts.
	InitialInterval time.Duration `json:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"`
}

// Supported capture range
const (
	MinWidth  = 160
	MaxWidth  = 4096
	MinHeight = 120
	MaxHeight = 2160
)

// DefaultConfig returns 640x480 on the first camera.
// A small frame keeps HOG detection fast on a Raspberry Pi.
func DefaultConfig() Config {
	return Config{
		Device:          "0",
		Width:           640,
		Height:          480,
		Retries:         5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Validate checks the config values.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device is required")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 4096")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Retries < 1 {
		errors = append(errors, "retries must be at least 1")
	}
	if c.InitialInterval < 0 || c.MaxInterval < 0 {
		errors = append(errors, "backoff intervals must not be negative")
	}

	return errors
}

// device converts a numeric Device into an index for gocv.
func (c *Config) device() interface{} {
	if id, err := strconv.Atoi(c.Device); err == nil {
		return id
	}
	return c.Device
}
