package lighting

import (
	"image"
	"math/rand"
)

// SampleConfig bounds color sampling.
type SampleConfig struct {
	Attempts  int   // random pixel reads; the only bound on work
	MinSpread int   // samples with Spread() <= MinSpread are rejected as grey
	Fallback  Color // fills slots that found no qualifying sample
}

// DefaultSampleConfig matches the installation defaults.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{
		Attempts:  200,
		MinSpread: 40,
		Fallback:  Color{R: 255, G: 160, B: 60},
	}
}

// SampleColors picks three saturated colors from img for a gradient.
// At most cfg.Attempts random pixels are read; slots still empty after
// that get cfg.Fallback.
func SampleColors(img image.Image, rng *rand.Rand, cfg SampleConfig) [3]Color {
	out := [3]Color{cfg.Fallback, cfg.Fallback, cfg.Fallback}
	if img == nil {
		return out
	}
	b := img.Bounds()
	if b.Empty() {
		return out
	}

	found := 0
	for i := 0; i < cfg.Attempts && found < len(out); i++ {
		c := FromColor(img.At(b.Min.X+rng.Intn(b.Dx()), b.Min.Y+rng.Intn(b.Dy())))
		if c.Spread() > cfg.MinSpread {
			out[found] = c
			found++
		}
	}
	return out
}
