package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"canon-router/config"
	"canon-router/handlers"
	"canon-router/services"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	router     *mux.Router
	httpServer *http.Server
	services   *services.ServiceContainer

	askHandler   *handlers.AskHandler
	adminHandler *handlers.AdminHandler
}

// NewServer creates a server over an already-wired service container
func NewServer(cfg *config.Config, container *services.ServiceContainer) *Server {
	router := mux.NewRouter()

	s := &Server{
		config:   cfg,
		router:   router,
		services: container,
		askHandler: handlers.NewAskHandler(container.Engine),
		adminHandler: handlers.NewAdminHandler(
			container.Store,
			container.Gate,
			container.Cache,
			container.Health,
			container.Logger,
		),
		httpServer: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}

	s.setupRoutes()
	s.setupMiddleware()

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.adminHandler.Health).Methods("GET")
	api.HandleFunc("/ask", s.askHandler.Ask).Methods("POST")

	api.HandleFunc("/admin/stats", s.adminHandler.Stats).Methods("GET")
	api.HandleFunc("/admin/reload", s.adminHandler.Reload).Methods("POST")
	api.HandleFunc("/cache/stats", s.adminHandler.CacheStats).Methods("GET")
	api.HandleFunc("/cache/clear", s.adminHandler.CacheClear).Methods("POST")
}

// setupMiddleware configures the middleware chain
func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.contentTypeMiddleware)
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	errChan := make(chan error, 1)
	go func() {
		s.services.Logger.Info("server listening", services.String("port", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		s.services.Logger.Info("shutting down", services.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.services.Cache.Stop()
	if s.services.Postgres != nil {
		defer s.services.Postgres.Close()
	}

	return s.httpServer.Shutdown(ctx)
}
