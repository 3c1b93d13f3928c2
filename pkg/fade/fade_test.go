package fade

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNew(t *testing.T) {
	tests := []struct {
		steps    int
		wantStep int
	}{
		{steps: 30, wantStep: 8},
		{steps: 1, wantStep: 255},
		{steps: 255, wantStep: 1},
		{steps: 1000, wantStep: 1},
		{steps: 0, wantStep: 255},
	}

	for _, tc := range tests {
		o := New(tc.steps)
		if o.Alpha() != Opaque {
			t.Errorf("New(%d): alpha = %d, want opaque", tc.steps, o.Alpha())
		}
		if o.Step() != tc.wantStep {
			t.Errorf("New(%d): step = %d, want %d", tc.steps, o.Step(), tc.wantStep)
		}
	}
}

func TestOverlay_MonotonicAndClamped(t *testing.T) {
	o := New(7)

	prev := o.Alpha()
	for i := 0; i < 100; i++ {
		o.TowardTransparent()
		if o.Alpha() > prev {
			t.Fatalf("tick %d: alpha rose from %d to %d while revealing", i, prev, o.Alpha())
		}
		if o.Alpha() < Transparent {
			t.Fatalf("tick %d: alpha %d below 0", i, o.Alpha())
		}
		prev = o.Alpha()
	}
	if o.Alpha() != Transparent {
		t.Errorf("after many ticks alpha = %d, want 0", o.Alpha())
	}

	for i := 0; i < 100; i++ {
		o.TowardOpaque()
		if o.Alpha() < prev {
			t.Fatalf("tick %d: alpha fell from %d to %d while darkening", i, prev, o.Alpha())
		}
		if o.Alpha() > Opaque {
			t.Fatalf("tick %d: alpha %d above 255", i, o.Alpha())
		}
		prev = o.Alpha()
	}
	if o.Alpha() != Opaque {
		t.Errorf("after many ticks alpha = %d, want 255", o.Alpha())
	}
}

func TestOverlay_Snap(t *testing.T) {
	o := New(10)
	for i := 0; i < 4; i++ {
		o.TowardTransparent()
	}
	if o.Alpha() == Opaque {
		t.Fatal("expected partial fade before snap")
	}

	o.Snap()
	if o.Alpha() != Opaque {
		t.Errorf("Snap: alpha = %d, want 255", o.Alpha())
	}
	if o.Opacity() != 1 {
		t.Errorf("Opacity = %v, want 1", o.Opacity())
	}
}

func TestOverlay_Render(t *testing.T) {
	content := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer content.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	o := New(1)
	o.Render(content, &dst)
	if got := dst.GetVecbAt(0, 0)[0]; got != 0 {
		t.Errorf("opaque overlay: pixel = %d, want 0", got)
	}

	o.TowardTransparent()
	o.Render(content, &dst)
	if got := dst.GetVecbAt(0, 0)[0]; got != 200 {
		t.Errorf("transparent overlay: pixel = %d, want 200", got)
	}
}
