// mirror - presence-triggered video and LED installation
// A hidden camera watches for a visitor; while someone is there a random
// video plays and the LED strip takes its colors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-mirror/internal/config"
	"github.com/teslashibe/go-mirror/internal/log"
	"github.com/teslashibe/go-mirror/pkg/debug"
	"github.com/teslashibe/go-mirror/pkg/mirror"
)

func main() {
	cfg, flags, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	log.InitWithFile(cfg.Log.Level, log.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	if err := run(cfg, flags); err != nil {
		log.Error("mirror failed", "error", err)
		os.Exit(1)
	}
}

// shutdownSignals end the kiosk cleanly; SIGHUP arrives when the session closes.
var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}

func run(cfg config.Config, flags mirror.Flags) error {
	app, err := mirror.New(cfg, flags)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return app.Run(ctx)
}

// parseFlags loads the config file and layers command-line switches over it.
func parseFlags() (config.Config, mirror.Flags, error) {
	path := flag.String("config", config.DefaultPath, "Path to config.json")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	debugPresence := flag.Bool("debug-presence", false, "Log every sensing tick (very verbose)")
	windowed := flag.Bool("windowed", false, "Run in a window instead of fullscreen")
	noLEDs := flag.Bool("no-leds", false, "Do not drive the LED strip")
	videos := flag.String("videos", "", "Video directory (overrides video_directory)")
	classifier := flag.String("classifier", "", "Presence classifier: hog, yunet, yolo, motion")
	web := flag.Bool("web", false, "Serve the status dashboard")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		return config.Config{}, mirror.Flags{}, err
	}

	if *videos != "" {
		cfg.VideoDirectory = *videos
	}
	if *classifier != "" {
		cfg.Classifier = *classifier
	}
	if *web {
		cfg.Web.Enabled = true
	}

	debug.Enabled = *debugFlag || *debugPresence
	debug.Presence = *debugPresence
	if debug.Enabled {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, mirror.Flags{}, err
	}
	return cfg, mirror.Flags{Windowed: *windowed, NoLEDs: *noLEDs}, nil
}
