package presence

import (
	"image"
	"sync"

	"github.com/teslashibe/go-mirror/pkg/debug"
	"gocv.io/x/gocv"
)

// HOGClassifier uses OpenCV's default HOG people detector.
// It is the cheapest full-body detector that ships with OpenCV.
type HOGClassifier struct {
	hog         gocv.HOGDescriptor
	resizeWidth int
	mu          sync.Mutex // Protects inference
}

// NewHOG creates a HOG people classifier.
func NewHOG(cfg Config) (*HOGClassifier, error) {
	hog := gocv.NewHOGDescriptor()

	svm := gocv.HOGDefaultPeopleDetector()
	defer svm.Close()
	hog.SetSVMDetector(svm)

	return &HOGClassifier{
		hog:         hog,
		resizeWidth: cfg.ResizeWidth,
	}, nil
}

// Classify runs the detector on a (possibly downscaled) copy of frame.
func (c *HOGClassifier) Classify(frame gocv.Mat) (Detection, bool) {
	if frame.Empty() {
		return Detection{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	img := frame
	if c.resizeWidth > 0 && frame.Cols() > c.resizeWidth {
		small := gocv.NewMat()
		defer small.Close()
		h := frame.Rows() * c.resizeWidth / frame.Cols()
		gocv.Resize(frame, &small, image.Pt(c.resizeWidth, h), 0, 0, gocv.InterpolationLinear)
		if small.Empty() {
			return Detection{}, false
		}
		img = small
	}

	rects := c.hog.DetectMultiScale(img)
	if len(rects) == 0 {
		return Detection{}, false
	}

	dets := make([]Detection, 0, len(rects))
	for _, r := range rects {
		// HOG has no per-window score through this API.
		dets = append(dets, fromRect(r, img.Cols(), img.Rows(), 1.0))
	}

	best := SelectBest(dets)
	debug.PresenceLog("hog detection", "people", len(rects), "x", best.X, "y", best.Y)
	return *best, true
}

// Close releases the descriptor.
func (c *HOGClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hog.Close()
	return nil
}
