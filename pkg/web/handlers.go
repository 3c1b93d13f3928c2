package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mirror/pkg/hub"
)

// handleHealth is a liveness probe.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	s.statusMu.RLock()
	started := s.status.StartedAt
	s.statusMu.RUnlock()

	return c.JSON(fiber.Map{
		"ok":      true,
		"uptime":  time.Since(started).Round(time.Second).String(),
		"viewers": s.statusHub.Viewers() + s.eventHub.Viewers(),
	})
}

// handleStatus returns the current installation state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleEvents returns recent events, newest last. ?limit=N trims the list.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", maxEvents)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must not be negative",
		})
	}

	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	events := s.events
	if limit < len(events) {
		events = events[len(events)-limit:]
	}
	return c.JSON(events)
}

// handleStatusWS streams status updates. The hub replays the latest status
// on connect.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.serveHub(s.statusHub, c)
}

// handleEventsWS streams new events after replaying the most recent ones.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	s.serveHub(s.eventHub, c)
}

func (s *Server) serveHub(h *hub.Hub, c *websocket.Conn) {
	v, ok := hub.Attach(h, c)
	if !ok {
		c.Close()
		return
	}
	v.Serve()
}
