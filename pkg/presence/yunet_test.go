package presence

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gocv.io/x/gocv"
)

// modelOrSkip locates an ONNX model in $MIRROR_MODELS or the repo's models
// directory and skips the test when it is absent.
func modelOrSkip(t *testing.T, name string) string {
	t.Helper()
	dirs := []string{os.Getenv("MIRROR_MODELS"), filepath.Join("..", "..", "models")}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Skipf("%s not available", name)
	return ""
}

func TestYuNet_NoFaceNoPresence(t *testing.T) {
	c, err := NewYuNet(Config{ModelPath: modelOrSkip(t, "face_detection_yunet.onnx"), ConfidenceThresh: 0.5})
	if err != nil {
		t.Fatalf("NewYuNet: %v", err)
	}
	defer c.Close()

	frames := map[string]gocv.Mat{
		"empty":      gocv.NewMat(),
		"blue wall":  gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3),
		"grey tiles": gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), 480, 640, gocv.MatTypeCV8UC3),
	}
	for name, f := range frames {
		defer f.Close()
		if _, ok := c.Classify(f); ok {
			t.Errorf("%s: reported presence", name)
		}
	}
}

func TestYuNet_SharedAcrossGoroutines(t *testing.T) {
	c, err := NewYuNet(Config{ModelPath: modelOrSkip(t, "face_detection_yunet.onnx")})
	if err != nil {
		t.Fatalf("NewYuNet: %v", err)
	}
	defer c.Close()

	small := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer small.Close()
	large := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer large.Close()

	// Alternating sizes exercise SetInputSize under the lock.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		f := small
		if i%2 == 1 {
			f = large
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Classify(f)
		}()
	}
	wg.Wait()
}
