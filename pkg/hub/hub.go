package hub

import (
	"context"
	"sync"

	"github.com/teslashibe/go-mirror/internal/log"
)

const (
	inboxSize   = 256
	viewerQueue = 64
)

// Hub owns a set of viewers. All membership changes and deliveries happen
// on the Run goroutine; Publish only enqueues.
type Hub struct {
	name    string
	backlog int

	viewers map[*Viewer]struct{}
	inbox   chan []byte
	join    chan *Viewer
	leave   chan *Viewer
	done    chan struct{}

	mu      sync.RWMutex
	recent  []Message
	seq     uint64
	count   int
	running bool
	dropped int
}

// New returns a hub that replays the last backlog messages to new viewers.
// A backlog below 1 is treated as 1.
func New(name string, backlog int) *Hub {
	if backlog < 1 {
		backlog = 1
	}
	return &Hub{
		name:    name,
		backlog: backlog,
		viewers: make(map[*Viewer]struct{}),
		inbox:   make(chan []byte, inboxSize),
		join:    make(chan *Viewer),
		leave:   make(chan *Viewer),
		done:    make(chan struct{}),
	}
}

// Run delivers messages until ctx is done, then closes every viewer queue.
// Call it once.
func (h *Hub) Run(ctx context.Context) {
	h.setRunning(true)
	defer func() {
		for v := range h.viewers {
			h.remove(v)
		}
		h.setRunning(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-h.join:
			h.add(v)
		case v := <-h.leave:
			h.remove(v)
		case data := <-h.inbox:
			h.deliver(h.record(data))
		}
	}
}

// Publish encodes v as JSON (a []byte is sent as is) and queues it for
// every viewer. It never blocks; when the inbox is full the message is
// dropped and counted.
func (h *Hub) Publish(v interface{}) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	select {
	case h.inbox <- data:
	default:
		h.mu.Lock()
		h.dropped++
		n := h.dropped
		h.mu.Unlock()
		if n == 1 || n%100 == 0 {
			log.Warn("hub inbox full, dropping update", "hub", h.name, "dropped", n)
		}
	}
	return nil
}

// Recent returns the replay backlog, oldest first.
func (h *Hub) Recent() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.recent))
	copy(out, h.recent)
	return out
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Running reports whether Run is active.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Dropped returns how many published updates were lost to a full inbox.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) setRunning(on bool) {
	h.mu.Lock()
	h.running = on
	h.mu.Unlock()
}

func (h *Hub) add(v *Viewer) {
	for _, m := range h.Recent() {
		select {
		case v.queue <- m:
		default:
		}
	}
	h.viewers[v] = struct{}{}
	h.mu.Lock()
	h.count = len(h.viewers)
	h.mu.Unlock()
	log.Debug("hub viewer joined", "hub", h.name, "viewers", len(h.viewers))
}

func (h *Hub) remove(v *Viewer) {
	if _, ok := h.viewers[v]; !ok {
		return
	}
	delete(h.viewers, v)
	close(v.queue)
	h.mu.Lock()
	h.count = len(h.viewers)
	h.mu.Unlock()
	log.Debug("hub viewer left", "hub", h.name, "viewers", len(h.viewers))
}

// record stamps data with the next sequence number and appends it to the
// backlog.
func (h *Hub) record(data []byte) Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	m := Message{Seq: h.seq, Data: data}
	h.recent = append(h.recent, m)
	if over := len(h.recent) - h.backlog; over > 0 {
		h.recent = append(h.recent[:0:0], h.recent[over:]...)
	}
	return m
}

func (h *Hub) deliver(m Message) {
	for v := range h.viewers {
		select {
		case v.queue <- m:
		default:
			log.Warn("hub viewer too slow, disconnecting", "hub", h.name, "seq", m.Seq)
			h.remove(v)
		}
	}
}
