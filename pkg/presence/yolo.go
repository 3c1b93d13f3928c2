package presence

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-mirror/pkg/debug"
	"gocv.io/x/gocv"
)

// personClassID is the COCO index of "person".
const personClassID = 0

// YOLOClassifier uses YOLOv8 and only reports the "person" class.
type YOLOClassifier struct {
	net       gocv.Net
	thresh    float32
	nmsThresh float32
	inputSize image.Point
	mu        sync.Mutex
}

// NewYOLO loads a YOLOv8 ONNX model for person detection.
func NewYOLO(cfg Config) (*YOLOClassifier, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("presence: model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("presence: failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	thresh := float32(cfg.ConfidenceThresh)
	if thresh <= 0 {
		thresh = 0.5
	}

	return &YOLOClassifier{
		net:       net,
		thresh:    thresh,
		nmsThresh: 0.45,
		inputSize: image.Pt(640, 640),
	}, nil
}

// Classify runs one forward pass and keeps person boxes only.
func (c *YOLOClassifier) Classify(frame gocv.Mat) (Detection, bool) {
	if frame.Empty() {
		return Detection{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	blob := gocv.BlobFromImage(frame, 1.0/255.0, c.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	dets := c.parsePersons(output, float32(frame.Cols()), float32(frame.Rows()))
	best := SelectBest(dets)
	if best == nil {
		return Detection{}, false
	}

	debug.PresenceLog("yolo detection", "people", len(dets), "confidence", best.Confidence)
	return *best, true
}

// parsePersons reads the [1, 84, 8400] YOLOv8 tensor: 4 box values then 80 class scores.
func (c *YOLOClassifier) parsePersons(output gocv.Mat, imgW, imgH float32) []Detection {
	rows := output.Cols() // 8400 candidates
	cols := output.Rows() // 84 values per candidate

	data, err := output.DataPtrFloat32()
	if err != nil || cols <= 4 {
		return nil
	}

	var (
		boxes       []image.Rectangle
		confidences []float32
	)

	inW := float32(c.inputSize.X)
	inH := float32(c.inputSize.Y)

	for i := 0; i < rows; i++ {
		// Person must also be the arg-max class, otherwise a dog
		// with a weak person score would count.
		best, bestID := float32(0), -1
		for k := 4; k < cols; k++ {
			if s := data[k*rows+i]; s > best {
				best, bestID = s, k-4
			}
		}
		if bestID != personClassID || best < c.thresh {
			continue
		}

		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		x1 := int((cx - w/2) * imgW / inW)
		y1 := int((cy - h/2) * imgH / inH)
		x2 := int((cx + w/2) * imgW / inW)
		y2 := int((cy + h/2) * imgH / inH)

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, best)
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, c.thresh, c.nmsThresh)

	dets := make([]Detection, 0, len(indices))
	for _, idx := range indices {
		dets = append(dets, fromRect(boxes[idx], int(imgW), int(imgH), float64(confidences[idx])))
	}
	return dets
}

// Close releases the network
func (c *YOLOClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.net.Close()
	return nil
}
