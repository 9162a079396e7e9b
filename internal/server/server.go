// Package server exposes action lists over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/textrules/internal/config"
	"github.com/raaihank/textrules/internal/engine"
	"github.com/raaihank/textrules/internal/host"
	"github.com/raaihank/textrules/internal/logger"
	"github.com/raaihank/textrules/internal/websocket"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	engine  *engine.Engine
	config  *config.Config
	logger  *logger.Logger
	version string
	started time.Time

	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	limiter *rateLimiter
}

// New creates a new server instance. Server settings are read from cfg
// once; action lists always come from the engine's current configuration.
func New(eng *engine.Engine, cfg *config.Config, log *logger.Logger, version string) *Server {
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		engine:  eng,
		config:  cfg,
		logger:  log.WithComponent("server"),
		version: version,
		started: time.Now(),
		router:  mux.NewRouter(),
		wsHub:   websocket.NewHub(cfg.WebSocket, log),
	}

	if cfg.Server.RateLimit.Enabled {
		s.limiter = newRateLimiter(cfg.Server.RateLimit)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.NewRoute().Subrouter()
	api.Use(s.loggingMiddleware)
	if s.limiter != nil {
		api.Use(s.rateLimitMiddleware)
	}
	api.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	api.HandleFunc("/actions", s.handleActions).Methods(http.MethodGet)
	api.HandleFunc("/apply", s.handleApply).Methods(http.MethodPost)

	if s.config.WebSocket.Enabled {
		s.router.Handle(s.config.WebSocket.Path, s.wsHub).Methods(http.MethodGet)
	}
}

// Handler returns the HTTP handler, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub for broadcasting events
func (s *Server) Hub() *websocket.Hub {
	return s.wsHub
}

// Start serves HTTP until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting textrules server",
		zap.String("addr", s.server.Addr),
		zap.Int("action_lists", len(s.engine.Store().Names())),
		zap.Bool("websocket", s.config.WebSocket.Enabled),
	)

	go s.wsHub.Run(ctx)
	if s.limiter != nil {
		go s.limiter.cleanup(ctx, time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping textrules server")
	return s.server.Shutdown(ctx)
}

// ConfigReloaded tells connected clients that the action store changed
func (s *Server) ConfigReloaded(cfg *config.Config) {
	s.wsHub.Broadcast(websocket.Event{
		Type: websocket.EventTypeConfigReloaded,
		Data: websocket.ConfigReloadedEvent{
			File:        cfg.File(),
			ActionLists: len(cfg.Actions),
		},
	})
}

func (s *Server) requestHost(ctx requestContext) *host.Host {
	return host.New(host.Options{
		Config:       s.engine.Config(),
		Clipboard:    &host.MemoryClipboard{Text: ctx.Clipboard},
		Logger:       s.logger,
		Version:      s.version,
		File:         ctx.File,
		LineNumber:   ctx.LineNumber,
		SelectedText: ctx.SelectedText,
		Restricted:   true,
		Allow:        s.config.Server.AllowPlaceholders,
	})
}
