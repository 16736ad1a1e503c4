package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/answer"
)

// Server is the API server for asking grounded questions against the
// configured corpus version.
type Server struct {
	config       Config
	orchestrator *answer.Orchestrator
	logger       *zap.Logger
	app          *fiber.App
}

// NewServer creates a new API server. The orchestrator is injected to
// allow sharing with other entry points (e.g. the one-shot ask command).
func NewServer(config Config, orchestrator *answer.Orchestrator, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:       config,
		orchestrator: orchestrator,
		logger:       logger,
		app:          app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/ask", s.handleAsk)
	app.Get("/v1/search", s.handleSearch)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
