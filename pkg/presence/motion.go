package presence

import (
	"image"
	"sync"

	"github.com/teslashibe/go-mirror/pkg/debug"
	"gocv.io/x/gocv"
)

// MotionClassifier is the lightweight heuristic: something moved enough
// between two consecutive frames. It pairs well with a tracker, which keeps
// presence alive while the person stands still.
type MotionClassifier struct {
	prev           gocv.Mat
	pixelThreshold float32
	minRatio       float64
	mu             sync.Mutex
}

// NewMotion creates a frame-difference classifier.
func NewMotion(cfg Config) (*MotionClassifier, error) {
	pt := cfg.PixelThreshold
	if pt <= 0 {
		pt = 25
	}
	ratio := cfg.MinChangeRatio
	if ratio <= 0 {
		ratio = 0.02
	}
	return &MotionClassifier{
		prev:           gocv.NewMat(),
		pixelThreshold: float32(pt),
		minRatio:       ratio,
	}, nil
}

// Classify compares frame with the previous one. The first frame after
// construction (or after a resolution change) is never present.
func (c *MotionClassifier) Classify(frame gocv.Mat) (Detection, bool) {
	if frame.Empty() {
		return Detection{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(21, 21), 0, 0, gocv.BorderDefault)

	if c.prev.Empty() || c.prev.Rows() != gray.Rows() || c.prev.Cols() != gray.Cols() {
		gray.CopyTo(&c.prev)
		return Detection{}, false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, c.prev, &diff)
	gocv.Threshold(diff, &diff, c.pixelThreshold, 255, gocv.ThresholdBinary)
	gray.CopyTo(&c.prev)

	total := diff.Rows() * diff.Cols()
	if total == 0 {
		return Detection{}, false
	}
	ratio := float64(gocv.CountNonZero(diff)) / float64(total)
	if ratio < c.minRatio {
		return Detection{}, false
	}

	region := largestBlob(diff)
	if region.Empty() {
		region = image.Rect(0, 0, diff.Cols(), diff.Rows())
	}

	debug.PresenceLog("motion detection", "ratio", ratio, "region", region)
	return fromRect(region, diff.Cols(), diff.Rows(), ratio), true
}

// largestBlob returns the bounding box of the biggest changed area in mask.
func largestBlob(mask gocv.Mat) image.Rectangle {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var (
		best     image.Rectangle
		bestArea float64
	)
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if a := gocv.ContourArea(c); a > bestArea {
			bestArea = a
			best = gocv.BoundingRect(c)
		}
	}
	return best
}

// Close releases the reference frame.
func (c *MotionClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prev.Close()
	return nil
}
