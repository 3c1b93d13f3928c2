package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10
	readLimit    = 4 << 10
)

// Viewer is one websocket connection subscribed to a hub. Viewers only
// receive; anything they send other than pongs is discarded.
type Viewer struct {
	hub   *Hub
	conn  *websocket.Conn
	queue chan Message
}

// Attach registers conn with h. It reports false if h has stopped.
func Attach(h *Hub, conn *websocket.Conn) (*Viewer, bool) {
	v := &Viewer{hub: h, conn: conn, queue: make(chan Message, viewerQueue)}
	select {
	case h.join <- v:
		return v, true
	case <-h.done:
		return nil, false
	}
}

// Serve writes queued messages to the connection until the viewer
// disconnects or the hub drops it. It blocks.
func (v *Viewer) Serve() {
	gone := make(chan struct{})
	go v.drain(gone)

	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		v.detach()
		v.conn.Close()
	}()

	for {
		select {
		case <-gone:
			return
		case m, ok := <-v.queue:
			v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, m.Data); err != nil {
				return
			}
		case <-ping.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drain reads until the peer goes away so pongs and close frames are
// processed.
func (v *Viewer) drain(gone chan<- struct{}) {
	defer close(gone)
	v.conn.SetReadLimit(readLimit)
	v.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (v *Viewer) detach() {
	select {
	case v.hub.leave <- v:
	case <-v.hub.done:
	}
}
