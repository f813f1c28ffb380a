// Package control exposes the daemon's remote surface: a small fiber
// API for activation and state, and a plain listener for Prometheus
// metrics and the websocket event feed.
package control

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openclaw/voicehub/pkg/agent"
	"github.com/openclaw/voicehub/pkg/hub"
)

// Config holds the control surface addresses.
type Config struct {
	// Addr is the fiber API listen address. Default: 127.0.0.1:8590.
	Addr string `yaml:"addr" json:"addr"`

	// MonitorAddr serves /metrics and /ws. Empty disables the
	// monitor listener. Default: 127.0.0.1:8591.
	MonitorAddr string `yaml:"monitor_addr" json:"monitor_addr"`
}

// DefaultConfig returns loopback-bound control addresses.
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:8590",
		MonitorAddr: "127.0.0.1:8591",
	}
}

// StateReporter is the part of the agent the API reads.
type StateReporter interface {
	State() agent.State
}

// Server is the control surface.
type Server struct {
	cfg     Config
	app     *fiber.App
	monitor *http.Server

	agent   StateReporter
	trigger *agent.ChanTrigger
	events  *hub.Hub
	logger  *slog.Logger
	started time.Time
}

// NewServer creates the control server. trigger receives one
// activation per POST /activate; events backs the /ws feed and may be
// nil when the monitor listener is disabled.
func NewServer(cfg Config, reporter StateReporter, trigger *agent.ChanTrigger, events *hub.Hub, logger *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		agent:   reporter,
		trigger: trigger,
		events:  events,
		logger:  logger.With("component", "control"),
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicehub control",
		DisableStartupMessage: true,
	})
	app.Use(recoverer.New())
	app.Use(cors.New())

	app.Post("/activate", s.handleActivate)
	app.Get("/state", s.handleState)
	app.Get("/healthz", s.handleHealthz)

	s.app = app

	if cfg.MonitorAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if events != nil {
			mux.HandleFunc("/ws", events.ServeWS)
		}
		s.monitor = &http.Server{
			Addr:         cfg.MonitorAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // websocket connections stay open
			IdleTimeout:  60 * time.Second,
		}
	}

	return s
}

// Start listens on both addresses. It returns once the fiber listener
// exits; the monitor listener runs in its own goroutine.
func (s *Server) Start() error {
	if s.monitor != nil {
		go func() {
			s.logger.Info("monitor listening", "addr", s.cfg.MonitorAddr)
			if err := s.monitor.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("monitor listener failed", "error", err)
			}
		}()
	}
	s.logger.Info("control api listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// StartAsync runs Start in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("control server failed", "error", err)
		}
	}()
}

// Shutdown stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.monitor != nil {
		if err := s.monitor.Shutdown(ctx); err != nil {
			s.logger.Warn("monitor shutdown failed", "error", err)
		}
	}
	return s.app.ShutdownWithContext(ctx)
}

// handleActivate delivers one push-to-talk edge to the agent. The
// agent decides whether the current state accepts it.
func (s *Server) handleActivate(c *fiber.Ctx) error {
	s.trigger.Fire()
	return c.JSON(fiber.Map{
		"status": "activated",
		"state":  s.agent.State().String(),
	})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	resp := fiber.Map{
		"state":  s.agent.State().String(),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if s.events != nil {
		resp["listeners"] = s.events.ClientCount()
	}
	return c.JSON(resp)
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
