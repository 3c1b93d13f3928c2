// Package config loads the installation configuration for go-mirror.
// Values come from config.json, MIRROR_* environment variables and defaults,
// in that order of precedence (environment wins over the file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPath is where the kiosk looks for its configuration file.
const DefaultPath = "config.json"

// EnvPrefix is prepended to every environment override, e.g. MIRROR_FRAME_RATE.
const EnvPrefix = "MIRROR"

// Config holds everything the installation reads once at startup.
// Flag overrides are applied in cmd/mirror; this struct is data only.
type Config struct {
	// Presence debounce and loop timing.
	ExitDelaySeconds float64 `mapstructure:"exit_delay_seconds"`
	FrameRate        int     `mapstructure:"frame_rate"`
	FadeSteps        int     `mapstructure:"fade_steps"`
	DetectEvery      int     `mapstructure:"detect_every"` // run the classifier every Nth tick

	// Media.
	VideoDirectory string  `mapstructure:"video_directory"`
	Player         string  `mapstructure:"player"`        // "mpv" or "vlc"
	PlayerBinary   string  `mapstructure:"player_binary"` // overrides the preset's binary
	PlayerGrace    float64 `mapstructure:"player_grace_seconds"`
	PlayerLoop     bool    `mapstructure:"player_loop"` // false: restart the player after each play-through

	// Lighting.
	LEDCount                  int       `mapstructure:"led_count"`
	LEDColor                  []int     `mapstructure:"led_color"` // fallback gradient colour
	LEDTransitionDelaySeconds float64   `mapstructure:"led_transition_delay_seconds"`
	LED                       LEDConfig `mapstructure:"led"`

	// Sensing.
	Classifier string       `mapstructure:"classifier"` // "hog", "yunet", "yolo" or "motion"
	Tracker    string       `mapstructure:"tracker"`    // "csrt", "mil" or "none"
	Camera     CameraConfig `mapstructure:"camera"`
	HOG        HOGConfig    `mapstructure:"hog"`
	YuNet      ModelConfig  `mapstructure:"yunet"`
	YOLO       ModelConfig  `mapstructure:"yolo"`
	Motion     MotionConfig `mapstructure:"motion"`

	// Ambient.
	Web WebConfig `mapstructure:"web"`
	Log LogConfig `mapstructure:"log"`
}

// LEDConfig selects and parameterises the strip driver.
type LEDConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	SPIPort         string  `mapstructure:"spi_port"`
	FreqKHz         int     `mapstructure:"freq_khz"`
	SampleAttempts  int     `mapstructure:"sample_attempts"`
	SampleMinSpread int     `mapstructure:"sample_min_spread"`
	Brightness      float64 `mapstructure:"brightness"`
}

// CameraConfig identifies the capture device.
type CameraConfig struct {
	Device  string `mapstructure:"device"` // index ("0") or device path
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
	Retries int    `mapstructure:"retries"`
}

// HOGConfig tunes the people detector.
type HOGConfig struct {
	ResizeWidth int `mapstructure:"resize_width"`
}

// ModelConfig points an ONNX-backed detector at its model.
type ModelConfig struct {
	ModelPath        string  `mapstructure:"model_path"`
	ConfidenceThresh float64 `mapstructure:"confidence"`
}

// MotionConfig tunes the frame-difference heuristic.
type MotionConfig struct {
	PixelThreshold float64 `mapstructure:"pixel_threshold"`
	MinChangeRatio float64 `mapstructure:"min_change_ratio"`
}

// WebConfig controls the status dashboard.
type WebConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exit_delay_seconds", 5.0)
	v.SetDefault("frame_rate", 30)
	v.SetDefault("fade_steps", 30)
	v.SetDefault("detect_every", 3)

	v.SetDefault("video_directory", "videos")
	v.SetDefault("player", "vlc")
	v.SetDefault("player_binary", "")
	v.SetDefault("player_grace_seconds", 2.0)
	v.SetDefault("player_loop", true)

	v.SetDefault("led_count", 60)
	v.SetDefault("led_color", []int{255, 160, 60})
	v.SetDefault("led_transition_delay_seconds", 0.02)
	v.SetDefault("led.enabled", true)
	v.SetDefault("led.spi_port", "")
	v.SetDefault("led.freq_khz", 2500)
	v.SetDefault("led.sample_attempts", 200)
	v.SetDefault("led.sample_min_spread", 40)
	v.SetDefault("led.brightness", 1.0)

	v.SetDefault("classifier", "hog")
	v.SetDefault("tracker", "csrt")
	v.SetDefault("camera.device", "0")
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.retries", 5)
	v.SetDefault("hog.resize_width", 400)
	v.SetDefault("yunet.model_path", "models/face_detection_yunet.onnx")
	v.SetDefault("yunet.confidence", 0.6)
	v.SetDefault("yolo.model_path", "models/yolov8n.onnx")
	v.SetDefault("yolo.confidence", 0.5)
	v.SetDefault("motion.pixel_threshold", 25.0)
	v.SetDefault("motion.min_change_ratio", 0.02)

	v.SetDefault("web.enabled", false)
	v.SetDefault("web.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg, _ := decode(newViper())
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Load reads path (JSON) and applies environment overrides.
// A missing file is not an error; defaults are used instead.
func Load(path string) (Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that values are usable by the run loop.
func (c *Config) Validate() error {
	if c.ExitDelaySeconds <= 0 {
		return &ConfigError{Field: "exit_delay_seconds", Message: "must be positive"}
	}
	if c.FrameRate < 1 || c.FrameRate > 120 {
		return &ConfigError{Field: "frame_rate", Message: "must be between 1 and 120"}
	}
	if c.FadeSteps < 1 {
		return &ConfigError{Field: "fade_steps", Message: "must be at least 1"}
	}
	if c.DetectEvery < 1 {
		return &ConfigError{Field: "detect_every", Message: "must be at least 1"}
	}
	if c.VideoDirectory == "" {
		return &ConfigError{Field: "video_directory", Message: "is required"}
	}
	if c.LEDCount < 1 {
		return &ConfigError{Field: "led_count", Message: "must be at least 1"}
	}
	if len(c.LEDColor) != 3 {
		return &ConfigError{Field: "led_color", Message: "must have exactly 3 components"}
	}
	for _, ch := range c.LEDColor {
		if ch < 0 || ch > 255 {
			return &ConfigError{Field: "led_color", Message: "components must be between 0 and 255"}
		}
	}
	if c.LEDTransitionDelaySeconds < 0 {
		return &ConfigError{Field: "led_transition_delay_seconds", Message: "must not be negative"}
	}
	switch c.Classifier {
	case "hog", "yunet", "yolo", "motion":
	default:
		return &ConfigError{Field: "classifier", Message: "must be hog, yunet, yolo or motion"}
	}
	switch c.Tracker {
	case "csrt", "mil", "none":
	default:
		return &ConfigError{Field: "tracker", Message: "must be csrt, mil or none"}
	}
	if c.Camera.Device == "" {
		return &ConfigError{Field: "camera.device", Message: "is required"}
	}
	if c.Web.Enabled && (c.Web.Port < 1 || c.Web.Port > 65535) {
		return &ConfigError{Field: "web.port", Message: "must be between 1 and 65535"}
	}
	switch c.Player {
	case "mpv", "vlc":
	default:
		return &ConfigError{Field: "player", Message: "must be mpv or vlc"}
	}
	return nil
}

// ExitDelay returns exit_delay_seconds as a duration.
func (c *Config) ExitDelay() time.Duration {
	return seconds(c.ExitDelaySeconds)
}

// FrameBudget is the target duration of one loop tick.
func (c *Config) FrameBudget() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// LEDStepDelay returns the per-step wipe delay.
func (c *Config) LEDStepDelay() time.Duration {
	return seconds(c.LEDTransitionDelaySeconds)
}

// PlayerGraceDuration is how long a player gets to exit after SIGTERM.
func (c *Config) PlayerGraceDuration() time.Duration {
	return seconds(c.PlayerGrace)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
