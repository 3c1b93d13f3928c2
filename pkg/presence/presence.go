// Package presence decides whether a person is in front of the camera.
//
// A Classifier is the expensive, authoritative check; a Tracker cheaply
// confirms between classifier runs that the last detected target is still
// in view. Both operate on BGR gocv.Mat frames and never treat an empty or
// unreadable frame as a positive verdict.
package presence

import (
	"errors"
	"fmt"
	"image"

	"github.com/teslashibe/go-mirror/internal/log"
	"gocv.io/x/gocv"
)

// ErrUnknownKind is returned by New for an unsupported classifier name.
var ErrUnknownKind = errors.New("presence: unknown classifier kind")

// Detection represents a detected person
type Detection struct {
	X, Y       float64 // Top-left position (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Rect converts the detection to pixel coordinates for a frame of the given
// size, clipped to the frame bounds.
func (d Detection) Rect(cols, rows int) image.Rectangle {
	r := image.Rect(
		int(d.X*float64(cols)),
		int(d.Y*float64(rows)),
		int((d.X+d.W)*float64(cols)),
		int((d.Y+d.H)*float64(rows)),
	)
	return r.Intersect(image.Rect(0, 0, cols, rows))
}

// fromRect normalizes a pixel rectangle found in a cols x rows image.
func fromRect(r image.Rectangle, cols, rows int, confidence float64) Detection {
	if cols <= 0 || rows <= 0 {
		return Detection{}
	}
	return Detection{
		X:          float64(r.Min.X) / float64(cols),
		Y:          float64(r.Min.Y) / float64(rows),
		W:          float64(r.Dx()) / float64(cols),
		H:          float64(r.Dy()) / float64(rows),
		Confidence: confidence,
	}
}

// Classifier is the interface for presence detection backends
type Classifier interface {
	// Classify reports whether a person is present in frame and, if so,
	// the strongest detection. Empty frames are never present.
	Classify(frame gocv.Mat) (Detection, bool)

	// Close releases resources
	Close() error
}

// Tracker cheaply follows a previously detected target across frames.
type Tracker interface {
	// Init starts following region in frame, replacing any previous target.
	Init(frame gocv.Mat, region image.Rectangle) bool

	// Update reports whether the target is still found in frame.
	Update(frame gocv.Mat) bool

	// Reset drops the current target.
	Reset()

	// Close releases resources
	Close() error
}

// Config holds classifier configuration
type Config struct {
	Kind             string  // "hog", "yunet", "yolo" or "motion"
	ModelPath        string  // ONNX model for yunet/yolo
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	ResizeWidth      int     // HOG downscale width, 0 = native
	PixelThreshold   float64 // Motion: per-pixel grey difference
	MinChangeRatio   float64 // Motion: changed-pixel ratio that counts as presence
}

// DefaultConfig returns production defaults (HOG people detector)
func DefaultConfig() Config {
	return Config{
		Kind:             "hog",
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		ResizeWidth:      400,
		PixelThreshold:   25,
		MinChangeRatio:   0.02,
	}
}

// New builds the classifier named by cfg.Kind. The result is wrapped so a
// panicking backend reports "not present" instead of crashing the loop.
func New(cfg Config) (Classifier, error) {
	var (
		c   Classifier
		err error
	)
	switch cfg.Kind {
	case "hog", "":
		c, err = NewHOG(cfg)
	case "yunet":
		c, err = NewYuNet(cfg)
	case "yolo":
		c, err = NewYOLO(cfg)
	case "motion":
		c, err = NewMotion(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	return Guard(c), nil
}

// SelectBest picks the best person from multiple detections
// Priority: confidence * 0.7 + area * 0.3
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}

	if len(dets) == 1 {
		return &dets[0]
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *Detection

	for i := range dets {
		areaScore := 0.0
		if maxArea > 0 {
			areaScore = dets[i].Area() / maxArea
		}
		score := dets[i].Confidence*0.7 + areaScore*0.3
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}

	return best
}

type guarded struct {
	Classifier
}

// Guard wraps c so that a panic inside Classify yields "not present".
func Guard(c Classifier) Classifier {
	if _, ok := c.(guarded); ok {
		return c
	}
	return guarded{c}
}

func (g guarded) Classify(frame gocv.Mat) (det Detection, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("classifier panicked, treating frame as empty", "panic", r)
			det, ok = Detection{}, false
		}
	}()
	return g.Classifier.Classify(frame)
}
