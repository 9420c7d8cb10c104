package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tomp11/sb-stamp-manager/pkg/collection"
	"github.com/tomp11/sb-stamp-manager/pkg/extract"
)

// Server is the API server for the stamps system.
type Server struct {
	config    Config
	store     *collection.Store
	extractor extract.Extractor
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server. The store is injected so it can be
// shared with the identity watcher; the extractor may be nil, in which case
// image ingestion is unavailable and callers must post records directly.
func NewServer(config Config, store *collection.Store, extractor extract.Extractor, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             32 * 1024 * 1024, // screenshots arrive base64-encoded
	})

	s := &Server{
		config:    config,
		store:     store,
		extractor: extractor,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/status", s.handleStatus)
	app.Get("/records", s.handleListRecords)
	app.Post("/ingest", s.handleIngest)
	app.Post("/sync", s.handleSync)
	app.Put("/records/:id", s.handleUpdateRecord)
	app.Delete("/records/:id", s.handleDeleteRecord)

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
