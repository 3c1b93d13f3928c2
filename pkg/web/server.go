// Package web serves the status dashboard API for the mirror.
package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mirror/internal/log"
	"github.com/teslashibe/go-mirror/pkg/hub"
)

const (
	maxEvents    = 200 // in-memory event history
	replayEvents = 20  // events replayed to a new websocket viewer
)

// Status is the installation state shown on the dashboard.
type Status struct {
	State      string    `json:"state"`
	Tracking   bool      `json:"tracking"`
	Alpha      int       `json:"alpha"`
	LastSeen   time.Time `json:"last_seen"`
	LastChange time.Time `json:"last_change"`
	Ticks      uint64    `json:"ticks"`
	Entered    int       `json:"entered"`
	Exited     int       `json:"exited"`

	SessionID string `json:"session_id,omitempty"`
	Asset     string `json:"asset,omitempty"`
	Restarts  int    `json:"restarts"`

	LEDCommand       string `json:"led_command"`
	LEDWriteFailures int    `json:"led_write_failures"`

	CameraFrames   int `json:"camera_frames"`
	CameraFailures int `json:"camera_failures"`

	StartedAt time.Time `json:"started_at"`
}

// Event is one line in the dashboard's activity feed.
type Event struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, transition, error
	Message string `json:"message"`
}

// Server is the dashboard HTTP server.
type Server struct {
	app  *fiber.App
	port int

	status   Status
	statusMu sync.RWMutex

	events   []Event
	eventsMu sync.RWMutex

	statusHub *hub.Hub
	eventHub  *hub.Hub
}

// NewServer creates the dashboard server. Call Start to serve.
func NewServer(port int) *Server {
	s := &Server{
		port:      port,
		events:    make([]Event, 0, maxEvents),
		statusHub: hub.New("status", 1),
		eventHub:  hub.New("events", replayEvents),
		status:    Status{State: "idle", StartedAt: time.Now()},
	}

	app := fiber.New(fiber.Config{
		AppName:               "Mirror Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleEvents)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves until ctx is done or Listen fails.
func (s *Server) Start(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.eventHub.Run(ctx)

	go func() {
		<-ctx.Done()
		s.app.Shutdown()
	}()

	addr := fmt.Sprintf(":%d", s.port)
	log.Info("web dashboard listening", "addr", addr)
	return s.app.Listen(addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			log.Warn("web server stopped", "error", err)
		}
	}()
}

// UpdateStatus applies update and broadcasts the result.
func (s *Server) UpdateStatus(update func(*Status)) {
	s.statusMu.Lock()
	update(&s.status)
	st := s.status
	s.statusMu.Unlock()

	if err := s.statusHub.Publish(st); err != nil {
		log.Warn("status broadcast failed", "error", err)
	}
}

// Status returns a copy of the current status.
func (s *Server) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// AddEvent appends to the activity feed and broadcasts it.
func (s *Server) AddEvent(eventType, message string) {
	e := Event{
		Time:    time.Now().Format("15:04:05"),
		Type:    eventType,
		Message: message,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	if err := s.eventHub.Publish(e); err != nil {
		log.Warn("event broadcast failed", "error", err)
	}
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
