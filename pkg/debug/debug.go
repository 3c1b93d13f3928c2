// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-mirror/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Presence controls whether per-tick sensing logs are shown (classifier
// verdicts, tracker updates). Use -debug-presence to enable these very verbose logs
var Presence bool

// Log emits a debug record only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// PresenceLog emits a debug record only if presence debug mode is enabled
func PresenceLog(msg string, args ...any) {
	if Presence {
		log.Debug(msg, args...)
	}
}
