package lighting

// Gradient renders three colors across n LEDs: the first half blends
// c[0]→c[1], the second half c[1]→c[2]. Segment ends hit the exact colors.
func Gradient(n int, c [3]Color) Frame {
	f := NewFrame(n)
	if n <= 0 {
		return f
	}

	half := n / 2
	blendSegment(f[:half], c[0], c[1])
	blendSegment(f[half:], c[1], c[2])
	return f
}

func blendSegment(seg Frame, from, to Color) {
	switch len(seg) {
	case 0:
		return
	case 1:
		seg[0] = from
		return
	}
	last := float64(len(seg) - 1)
	for i := range seg {
		seg[i] = from.Blend(to, float64(i)/last)
	}
}

// WipeSteps is the number of steps a full wipe of n LEDs takes.
func WipeSteps(n int) int {
	if n <= 0 {
		return 0
	}
	return n/2 + 1
}

// WipeStep turns off the LEDs offset positions in from both ends.
// Applying steps 0..WipeSteps(n)-1 in order leaves the whole strip off.
func WipeStep(f Frame, offset int) {
	n := len(f)
	left, right := offset, n-offset-1
	if left >= 0 && left < n {
		f[left] = Off
	}
	if right >= 0 && right < n {
		f[right] = Off
	}
}
