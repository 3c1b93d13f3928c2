package presence

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"github.com/teslashibe/go-mirror/pkg/debug"
)

// ErrUnknownTracker is returned by NewTracker for an unsupported name.
var ErrUnknownTracker = errors.New("presence: unknown tracker kind")

// CVTracker follows one target with an OpenCV single-object tracker.
//
// CSRT reports failure once the target leaves the frame. MIL almost never
// does and drifts onto the background, so with MIL the classifier's
// periodic verdict is what ends a track.
type CVTracker struct {
	kind    string
	create  func() gocv.Tracker
	tracker gocv.Tracker
	region  image.Rectangle
}

// NewTracker returns a tracker by name: "csrt" (default) or "mil".
func NewTracker(kind string) (*CVTracker, error) {
	switch kind {
	case "csrt", "":
		return NewCSRTTracker(), nil
	case "mil":
		return NewMILTracker(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTracker, kind)
	}
}

// NewCSRTTracker returns a CSRT tracker with no active target.
func NewCSRTTracker() *CVTracker {
	return &CVTracker{kind: "csrt", create: contrib.NewTrackerCSRT}
}

// NewMILTracker returns a MIL tracker with no active target.
func NewMILTracker() *CVTracker {
	return &CVTracker{kind: "mil", create: gocv.NewTrackerMIL}
}

// Kind names the underlying algorithm.
func (t *CVTracker) Kind() string {
	return t.kind
}

// Init starts tracking region in frame. Any previous target is dropped.
func (t *CVTracker) Init(frame gocv.Mat, region image.Rectangle) bool {
	t.Reset()

	if frame.Empty() {
		return false
	}
	region = region.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if region.Empty() {
		return false
	}

	tr := t.create()
	if !tr.Init(frame, region) {
		tr.Close()
		return false
	}

	t.tracker = tr
	t.region = region
	debug.PresenceLog("tracker initialized", "kind", t.kind, "region", region)
	return true
}

// Update advances the tracker. A lost target resets the tracker so the
// caller falls back to the classifier.
func (t *CVTracker) Update(frame gocv.Mat) bool {
	if t.tracker == nil || frame.Empty() {
		return false
	}

	rect, ok := t.tracker.Update(frame)
	if !ok || rect.Empty() {
		debug.PresenceLog("tracker lost target", "kind", t.kind)
		t.Reset()
		return false
	}

	t.region = rect
	return true
}

// Active reports whether a target is being followed.
func (t *CVTracker) Active() bool {
	return t.tracker != nil
}

// Region returns the last known target rectangle.
func (t *CVTracker) Region() image.Rectangle {
	return t.region
}

// Reset drops the current target.
func (t *CVTracker) Reset() {
	if t.tracker != nil {
		t.tracker.Close()
		t.tracker = nil
	}
	t.region = image.Rectangle{}
}

// Close releases the tracker.
func (t *CVTracker) Close() error {
	t.Reset()
	return nil
}
