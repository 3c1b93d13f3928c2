package playback

import (
	"errors"
	"fmt"
)

// Sentinel errors for the playback package.
var (
	// ErrNoAssetsFound indicates the video directory holds no playable files.
	ErrNoAssetsFound = errors.New("playback: no video assets found")

	// ErrPlayerExited indicates a looping player quit on its own.
	ErrPlayerExited = errors.New("playback: player exited unexpectedly")

	// ErrNoFrame indicates a video produced no decodable frame.
	ErrNoFrame = errors.New("playback: no frame decoded")

	// ErrUnknownPlayer indicates an unsupported player preset name.
	ErrUnknownPlayer = errors.New("playback: unknown player")
)

// SpawnError reports a player process that could not be started.
type SpawnError struct {
	// Binary is the executable that was launched.
	Binary string

	// Asset is the video the player was asked to show.
	Asset string

	// Cause is the underlying exec error.
	Cause error
}

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("playback: start %s for %s: %v", e.Binary, e.Asset, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *SpawnError) Unwrap() error {
	return e.Cause
}
