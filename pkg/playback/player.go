package playback

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Player describes an external fullscreen video player.
type Player struct {
	Name      string
	Binary    string
	Flags     []string
	LoopFlags []string // passed only when NativeLoop is set

	// NativeLoop is true when the player repeats the asset itself.
	// Otherwise the Controller restarts it after each exit.
	NativeLoop bool
}

// Args returns the command line for asset.
func (p Player) Args(asset string) []string {
	args := make([]string, 0, len(p.Flags)+len(p.LoopFlags)+1)
	args = append(args, p.Flags...)
	if p.NativeLoop {
		args = append(args, p.LoopFlags...)
	}
	return append(args, asset)
}

// WithoutLoop returns p launched without its loop flags, leaving
// repetition to the Controller.
func (p Player) WithoutLoop() Player {
	p.NativeLoop = false
	return p
}

// MPV plays borderless and fullscreen with no on-screen display.
func MPV() Player {
	return Player{
		Name:       "mpv",
		Binary:     "mpv",
		Flags:      []string{"--fs", "--no-osd-bar", "--no-border", "--really-quiet"},
		LoopFlags:  []string{"--loop"},
		NativeLoop: true,
	}
}

// VLC plays fullscreen without title or decorations.
func VLC() Player {
	return Player{
		Name:   "vlc",
		Binary: "vlc",
		Flags: []string{
			"--fullscreen",
			"--no-video-title-show",
			"--no-video-deco",
			"--video-on-top",
			"--quiet",
		},
		LoopFlags:  []string{"--loop"},
		NativeLoop: true,
	}
}

// PlayerByName returns the preset for name. A non-empty binary overrides
// the preset's executable path.
func PlayerByName(name, binary string) (Player, error) {
	var p Player
	switch strings.ToLower(name) {
	case "mpv":
		p = MPV()
	case "vlc", "":
		p = VLC()
	default:
		return Player{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	if binary != "" {
		p.Binary = binary
	}
	return p, nil
}

// VideoExtensions lists the file extensions treated as playable.
var VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v"}

// IsVideo reports whether name has a playable extension (case-insensitive).
func IsVideo(name string) bool {
	return slices.Contains(VideoExtensions, strings.ToLower(filepath.Ext(name)))
}

// ListAssets returns the playable files directly inside dir, sorted.
func ListAssets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAssetsFound, err)
	}

	var assets []string
	for _, e := range entries {
		if e.IsDir() || !IsVideo(e.Name()) {
			continue
		}
		assets = append(assets, filepath.Join(dir, e.Name()))
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAssetsFound, dir)
	}
	sort.Strings(assets)
	return assets, nil
}
