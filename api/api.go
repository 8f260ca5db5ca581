package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/drift/pkg/contextstore"
	"github.com/papercomputeco/drift/pkg/conversation"
	"github.com/papercomputeco/drift/pkg/logger"
)

// Server is the API server for tracking and querying conversation topics.
type Server struct {
	config    Config
	store     *contextstore.Store
	lifecycle *conversation.Manager
	logger    *slog.Logger
	app       *fiber.App
}

// NewServer creates a new API server.
// The store and lifecycle manager are injected to allow sharing with
// other surfaces (e.g., the MCP tools).
func NewServer(config Config, store *contextstore.Store, lifecycle *conversation.Manager, log *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("context store is required")
	}

	if lifecycle == nil {
		return nil, errors.New("conversation manager is required")
	}

	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		store:     store,
		lifecycle: lifecycle,
		logger:    log,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/version", s.handleVersion)
	app.Post("/v1/conversations", s.handleStartConversation)
	app.Get("/v1/conversations", s.handleListConversations)
	app.Post("/v1/conversations/:id/load", s.handleLoadConversation)
	app.Post("/v1/conversations/:id/messages", s.handleTrackMessage)
	app.Get("/v1/conversations/:id/context", s.handleGetContext)
	app.Post("/v1/conversations/:id/reset", s.handleResetConversation)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.Addr(),
	)
	return s.app.Listen(s.config.Addr())
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
