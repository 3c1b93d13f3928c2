package mirror

import (
	"time"

	"github.com/teslashibe/go-mirror/pkg/playback"
)

// State is the installation mode.
type State int

const (
	StateIdle State = iota
	StatePlaying
)

func (s State) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "idle"
}

// Transition is the edge taken during a tick, if any.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionEntered
	TransitionExited
)

func (t Transition) String() string {
	switch t {
	case TransitionEntered:
		return "entered"
	case TransitionExited:
		return "exited"
	default:
		return "none"
	}
}

// Source says where a tick's presence verdict came from.
type Source int

const (
	SourceNone       Source = iota // empty frame, no sensing possible
	SourceSkipped                  // classifier skipped by the detect interval
	SourceClassifier               // full classifier ran
	SourceTracker                  // active track was updated
)

func (s Source) String() string {
	switch s {
	case SourceSkipped:
		return "skipped"
	case SourceClassifier:
		return "classifier"
	case SourceTracker:
		return "tracker"
	default:
		return "none"
	}
}

// PresenceState is the debounce memory carried between ticks.
type PresenceState struct {
	Playing  bool
	LastSeen time.Time
	Tracking bool
}

// Tick is the outcome of one Step.
type Tick struct {
	Seq        uint64
	State      State
	Transition Transition
	Present    bool
	Source     Source
	Alpha      int
}

// Status is a point-in-time view for the dashboard.
type Status struct {
	State      State
	LastSeen   time.Time
	Tracking   bool
	Alpha      int
	Ticks      uint64
	Session    *playback.Session
	Entered    int
	Exited     int
	LastChange time.Time
}
