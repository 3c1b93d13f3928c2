// Package lighting drives the addressable LED strip behind the mirror.
//
// A Controller owns the strip and a single background worker. Callers never
// write to the strip directly; they post commands (gradient, wipe-off) into a
// one-slot mailbox where the newest command replaces any older pending one.
package lighting

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is one LED value.
type Color struct {
	R, G, B uint8
}

// Frame is one value per LED, index 0 first on the wire.
type Frame []Color

// Off is an unlit LED.
var Off = Color{}

// FromColor converts any image color, dropping alpha.
func FromColor(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// FromInts builds a Color from a 3-element slice such as the configured
// led_color. Missing components are zero and values are clamped.
func FromInts(v []int) Color {
	var ch [3]uint8
	for i := 0; i < 3 && i < len(v); i++ {
		ch[i] = uint8(min(255, max(0, v[i])))
	}
	return Color{R: ch[0], G: ch[1], B: ch[2]}
}

// Spread is max(channel) - min(channel); near zero means near grey.
func (c Color) Spread() int {
	hi := max(c.R, c.G, c.B)
	lo := min(c.R, c.G, c.B)
	return int(hi) - int(lo)
}

// Scale dims the color by f in [0, 1].
func (c Color) Scale(f float64) Color {
	if f >= 1 {
		return c
	}
	if f <= 0 {
		return Off
	}
	return Color{
		R: uint8(float64(c.R)*f + 0.5),
		G: uint8(float64(c.G)*f + 0.5),
		B: uint8(float64(c.B)*f + 0.5),
	}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Blend interpolates linearly from c to to; t is clamped to [0, 1].
func (c Color) Blend(to Color, t float64) Color {
	t = min(1, max(0, t))
	r, g, b := c.colorful().BlendRgb(to.colorful(), t).Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

// NewFrame returns n unlit LEDs.
func NewFrame(n int) Frame {
	return make(Frame, n)
}

// Fill sets every LED to c.
func (f Frame) Fill(c Color) {
	for i := range f {
		f[i] = c
	}
}

// IsOff reports whether every LED is unlit.
func (f Frame) IsOff() bool {
	for _, c := range f {
		if c != Off {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}
