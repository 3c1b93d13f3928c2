// Package fade animates the full-screen black overlay that crossfades the
// display between visible content and black.
package fade

import "gocv.io/x/gocv"

// Opacity bounds of the overlay.
const (
	Transparent = 0
	Opaque      = 255
)

// Overlay holds the overlay opacity. It moves by a fixed step per tick and
// only jumps on Snap.
type Overlay struct {
	alpha int
	step  int
}

// New returns a fully opaque overlay that takes about steps ticks to clear.
func New(steps int) *Overlay {
	step := Opaque
	if steps > 0 {
		step = Opaque / steps
	}
	if step < 1 {
		step = 1
	}
	return &Overlay{alpha: Opaque, step: step}
}

// Alpha returns the overlay opacity in [0, 255].
func (o *Overlay) Alpha() int {
	return o.alpha
}

// Step returns the per-tick change.
func (o *Overlay) Step() int {
	return o.step
}

// Opacity returns the overlay opacity in [0, 1].
func (o *Overlay) Opacity() float64 {
	return float64(o.alpha) / Opaque
}

// TowardTransparent reveals content by one step.
func (o *Overlay) TowardTransparent() {
	o.alpha = max(Transparent, o.alpha-o.step)
}

// TowardOpaque darkens content by one step.
func (o *Overlay) TowardOpaque() {
	o.alpha = min(Opaque, o.alpha+o.step)
}

// Snap resets to fully opaque so new content reveals from black.
func (o *Overlay) Snap() {
	o.alpha = Opaque
}

// Render writes content darkened by the overlay into dst.
func (o *Overlay) Render(content gocv.Mat, dst *gocv.Mat) {
	if content.Empty() {
		return
	}
	visible := 1 - o.Opacity()
	gocv.AddWeighted(content, visible, content, 0, 0, dst)
}
