// Package server implements the Inkwell HTTP server: REST API and SSE
// real-time events.
package server

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"inkwell/config"
	"inkwell/events"
	"inkwell/executor"
	"inkwell/server/api"
	"inkwell/store"
)

// Server is the Inkwell HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	store    *store.Store
	bus      *events.Bus
	hub      *events.Hub
	exec     *executor.Executor
	handlers *api.Handlers

	startTime time.Time
	version   string
}

// New creates a new Server with the given config and logger.
func New(cfg config.Config, ver string, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger,
		startTime: time.Now(),
		version:   ver,
	}
}

// SetStore attaches the data store to the server.
func (s *Server) SetStore(st *store.Store) {
	s.store = st
}

// SetBus attaches the event bus to the server.
func (s *Server) SetBus(bus *events.Bus) {
	s.bus = bus
}

// SetExecutor attaches the task executor to the server.
func (s *Server) SetExecutor(exec *executor.Executor) {
	s.exec = exec
}

// SetStaticFS sets the embedded filesystem to serve UI files from.
// Call before Start.
func (s *Server) SetStaticFS(fsys fs.FS) {
	s.mux.Handle("/", http.FileServerFS(fsys))
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	s.registerRoutes()

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8787"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's routed handler for tests.
func (s *Server) Handler() http.Handler {
	if s.handlers == nil {
		s.registerRoutes()
	}
	return s.mux
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	h := &api.Handlers{
		Store:    s.store,
		Bus:      s.bus,
		Exec:     s.exec,
		Logger:   s.logger,
		Defaults: s.cfg.Provider,
		Version:  s.version,
		StartAt:  s.startTime.Unix(),
	}
	s.handlers = h
	h.RegisterRoutes(s.mux)

	// SSE stream of task and doc updates
	s.hub = events.NewHub(s.bus, s.logger)
	s.mux.HandleFunc("GET /events", s.hub.ServeSSE)
}
