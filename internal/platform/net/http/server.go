package http

import (
	"context"
	"net"
	stdhttp "net/http"
	"time"

	"bridgebot/internal/platform/logger"
)

// Server wraps a stdlib http.Server with an explicit bind step so callers
// see bind failures synchronously instead of inside a serve goroutine.
// The relay creates one of these per service on a dynamically allocated port.
type Server struct {
	addr string
	srv  *stdhttp.Server
	ln   net.Listener
}

// NewServer creates a server for the given addr and handler
func NewServer(addr string, h stdhttp.Handler) *Server {
	return &Server{
		addr: addr,
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Listen binds the address. Must be called before Serve
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address when listening, otherwise the configured one
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Serve blocks serving the bound listener. A clean Shutdown returns nil
func (s *Server) Serve() error {
	err := s.srv.Serve(s.ln)
	if err == stdhttp.ErrServerClosed {
		return nil
	}
	return err
}

// ServeTLS is Serve over TLS with the given cert and key files
func (s *Server) ServeTLS(certFile, keyFile string) error {
	err := s.srv.ServeTLS(s.ln, certFile, keyFile)
	if err == stdhttp.ErrServerClosed {
		return nil
	}
	return err
}

// Run binds and serves, blocking until shutdown
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	log := logger.Named("http")
	log.Info().Str("addr", s.Addr()).Msg("http listening")
	return s.Serve()
}

// Shutdown closes the listener first (no new connections), then drains
// in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
