package presence

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-mirror/pkg/debug"
	"gocv.io/x/gocv"
)

// YuNetClassifier uses OpenCV's FaceDetectorYN: a visible face counts as presence.
// Cheaper than full-body detection when the camera is at head height.
type YuNetClassifier struct {
	detector gocv.FaceDetectorYN
	config   Config
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face classifier using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg Config) (*YuNetClassifier, error) {
	// Check if model file exists first
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("presence: model file not found: %s", cfg.ModelPath)
	}

	thresh := cfg.ConfidenceThresh
	if thresh <= 0 {
		thresh = 0.5
	}

	// Input size is reset per frame in Classify
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",                          // No config file needed for ONNX
		image.Pt(320, 320),          // Initial input size
		float32(thresh),             // Score threshold
		0.3,                         // NMS threshold
		5000,                        // Top K
		int(gocv.NetBackendDefault), // Backend
		int(gocv.NetTargetCPU),      // Target
	)

	return &YuNetClassifier{
		detector: detector,
		config:   cfg,
	}, nil
}

// Classify finds faces in frame and reports the best one.
func (c *YuNetClassifier) Classify(frame gocv.Mat) (Detection, bool) {
	if frame.Empty() {
		return Detection{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	imgW := float64(frame.Cols())
	imgH := float64(frame.Rows())

	c.detector.SetInputSize(image.Pt(frame.Cols(), frame.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	c.detector.Detect(frame, &faces)

	var dets []Detection
	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))
		score := float64(faces.GetFloatAt(r, 14))

		dets = append(dets, Detection{
			X:          x / imgW,
			Y:          y / imgH,
			W:          w / imgW,
			H:          h / imgH,
			Confidence: score,
		})
	}

	best := SelectBest(dets)
	if best == nil {
		return Detection{}, false
	}

	debug.PresenceLog("yunet detection", "faces", len(dets), "confidence", best.Confidence)
	return *best, true
}

// Close releases the detector resources
func (c *YuNetClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detector.Close()
	return nil
}
