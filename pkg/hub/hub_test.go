package hub

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newViewer(h *Hub, queue int) *Viewer {
	return &Viewer{hub: h, queue: make(chan Message, queue)}
}

func startHub(t *testing.T, backlog int) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", backlog)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func next(t *testing.T, v *Viewer) Message {
	t.Helper()
	select {
	case m, ok := <-v.queue:
		if !ok {
			t.Fatal("viewer queue closed")
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	return Message{}
}

// settle waits until the hub has consumed its inbox.
func settle(t *testing.T, h *Hub, wantSeq uint64) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if r := h.Recent(); len(r) > 0 && r[len(r)-1].Seq == wantSeq {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("hub never reached seq %d", wantSeq)
}

func TestPublishEncodesJSON(t *testing.T) {
	h, _ := startHub(t, 1)
	v := newViewer(h, 4)
	h.join <- v

	if err := h.Publish(map[string]string{"state": "playing"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	m := next(t, v)
	if m.Seq != 1 || string(m.Data) != `{"state":"playing"}` {
		t.Errorf("got seq=%d data=%q", m.Seq, m.Data)
	}

	if err := h.Publish([]byte(`raw`)); err != nil {
		t.Fatalf("Publish raw: %v", err)
	}
	if m := next(t, v); m.Seq != 2 || string(m.Data) != "raw" {
		t.Errorf("raw bytes re-encoded: seq=%d data=%q", m.Seq, m.Data)
	}
	if h.Viewers() != 1 {
		t.Errorf("Viewers = %d, want 1", h.Viewers())
	}
}

func TestPublishRejectsUnencodable(t *testing.T) {
	h := New("test", 1)
	if err := h.Publish(make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}

func TestBacklogReplay(t *testing.T) {
	tests := []struct {
		name    string
		backlog int
		want    []string
	}{
		{"latest only", 1, []string{`"e3"`}},
		{"last two", 2, []string{`"e2"`, `"e3"`}},
		{"larger than history", 10, []string{`"e1"`, `"e2"`, `"e3"`}},
		{"zero means one", 0, []string{`"e3"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := startHub(t, tt.backlog)
			for i := 1; i <= 3; i++ {
				h.Publish(fmt.Sprintf("e%d", i))
			}
			settle(t, h, 3)

			late := newViewer(h, 16)
			h.join <- late
			for _, want := range tt.want {
				if m := next(t, late); string(m.Data) != want {
					t.Errorf("replayed %q, want %q", m.Data, want)
				}
			}
		})
	}
}

func TestLeaveClosesQueue(t *testing.T) {
	h, _ := startHub(t, 1)
	v := newViewer(h, 4)
	h.join <- v
	h.leave <- v

	select {
	case _, ok := <-v.queue:
		if ok {
			t.Error("expected closed queue")
		}
	case <-time.After(time.Second):
		t.Fatal("queue not closed")
	}
	if h.Viewers() != 0 {
		t.Errorf("Viewers = %d, want 0", h.Viewers())
	}

	// A second leave for the same viewer is ignored.
	h.leave <- v
}

func TestSlowViewerDropped(t *testing.T) {
	h, _ := startHub(t, 1)
	slow := newViewer(h, 1)
	h.join <- slow

	h.Publish("a")
	h.Publish("b")
	settle(t, h, 2)

	deadline := time.Now().Add(time.Second)
	for h.Viewers() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.Viewers() != 0 {
		t.Fatal("slow viewer still attached")
	}
	if m := <-slow.queue; string(m.Data) != `"a"` {
		t.Errorf("first message = %q", m.Data)
	}
	if _, ok := <-slow.queue; ok {
		t.Error("queue should be closed after drop")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h, cancel := startHub(t, 1)
	v := newViewer(h, 4)
	h.join <- v
	if !h.Running() {
		t.Error("hub should be running")
	}

	cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if h.Running() {
		t.Error("hub should have stopped")
	}
	if _, ok := <-v.queue; ok {
		t.Error("viewer queue should be closed on stop")
	}
	if _, ok := Attach(h, nil); ok {
		t.Error("Attach should fail on a stopped hub")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	h := New("idle", 1) // Run not started
	done := make(chan struct{})
	go func() {
		for i := 0; i < inboxSize+500; i++ {
			h.Publish([]byte("x"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with a full inbox")
	}
	if h.Dropped() != 500 {
		t.Errorf("Dropped = %d, want 500", h.Dropped())
	}
}
