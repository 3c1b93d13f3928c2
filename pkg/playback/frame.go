package playback

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FirstFrame decodes the first frame of asset. The caller must close the
// returned Mat, even on error.
func FirstFrame(asset string) (gocv.Mat, error) {
	vc, err := gocv.VideoCaptureFile(asset)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("playback: open %s: %w", asset, err)
	}
	defer vc.Close()

	frame := gocv.NewMat()
	if ok := vc.Read(&frame); !ok || frame.Empty() {
		return frame, fmt.Errorf("%w: %s", ErrNoFrame, asset)
	}
	return frame, nil
}

// FirstImage is FirstFrame converted to an image.Image for color sampling.
func FirstImage(asset string) (image.Image, error) {
	frame, err := FirstFrame(asset)
	defer frame.Close()
	if err != nil {
		return nil, err
	}
	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("playback: convert frame: %w", err)
	}
	return img, nil
}
