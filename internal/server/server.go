package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/logging"
)

// Server represents the operator HTTP server
type Server struct {
	srv      *http.Server
	listener net.Listener
	errs     chan error
	logger   logging.Logger
}

// New creates a new server instance. A port of "0" picks a free port.
func New(handler http.Handler, port string, logger logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		errs:   make(chan error, 1),
		logger: logging.OrGlobal(logger),
	}
}

// Start binds the port and serves in the background. Bind failures are
// returned here; later serve failures arrive on Errors.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.InternalError("failed to bind "+s.srv.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", err)
			s.errs <- err
		}
		close(s.errs)
	}()

	s.logger.Info("HTTP server listening", logging.Field{Key: "addr", Value: listener.Addr().String()})
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Errors is closed when the server stops and carries a value if it stopped on its own
func (s *Server) Errors() <-chan error {
	return s.errs
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
