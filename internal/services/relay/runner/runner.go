// Package runner manages the per-service HTTP listeners: one server per
// service id, bind-before-success semantics, idempotent teardown
package runner

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"bridgebot/internal/platform/logger"
	phttp "bridgebot/internal/platform/net/http"
)

// Options configures the runner
type Options struct {
	// Host is the bind host for service listeners (empty binds all interfaces)
	Host string
	// CertFile and KeyFile enable TLS on every service listener when both set
	CertFile string
	KeyFile  string
	// ShutdownTimeout bounds the drain on Stop (default 5s)
	ShutdownTimeout time.Duration
}

// Runner implements the registry's lifecycle port
type Runner struct {
	mu      sync.Mutex
	opt     Options
	servers map[string]*phttp.Server
	log     logger.Logger
}

// New builds a runner
func New(opt Options) *Runner {
	if opt.ShutdownTimeout <= 0 {
		opt.ShutdownTimeout = 5 * time.Second
	}
	return &Runner{
		opt:     opt,
		servers: make(map[string]*phttp.Server),
		log:     *logger.Named("runner"),
	}
}

// Start binds a listener on the given port and serves h on it. The bind
// happens synchronously so the caller learns about port conflicts before
// recording anything; only serving is deferred to a goroutine
func (r *Runner) Start(serviceID string, port int, h stdhttp.Handler) error {
	addr := fmt.Sprintf("%s:%d", r.opt.Host, port)
	srv := phttp.NewServer(addr, h)
	if err := srv.Listen(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, dup := r.servers[serviceID]; dup {
		r.mu.Unlock()
		_ = srv.Shutdown(context.Background())
		return fmt.Errorf("listener for %q already running", serviceID)
	}
	r.servers[serviceID] = srv
	r.mu.Unlock()

	tls := r.opt.CertFile != "" && r.opt.KeyFile != ""
	r.log.Info().Str("service_id", serviceID).Str("addr", srv.Addr()).Bool("tls", tls).Msg("listener up")

	go func() {
		var err error
		if tls {
			err = srv.ServeTLS(r.opt.CertFile, r.opt.KeyFile)
		} else {
			err = srv.Serve()
		}
		if err != nil {
			r.log.Error().Err(err).Str("service_id", serviceID).Msg("listener exited")
		}
	}()
	return nil
}

// Stop shuts the listener down, draining in-flight requests up to the
// shutdown timeout. Unknown ids are a no-op
func (r *Runner) Stop(ctx context.Context, serviceID string) error {
	r.mu.Lock()
	srv, ok := r.servers[serviceID]
	delete(r.servers, serviceID)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, r.opt.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// StopAll tears down every listener, used on process shutdown
func (r *Runner) StopAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.Stop(ctx, id); err != nil {
			r.log.Warn().Err(err).Str("service_id", id).Msg("listener shutdown failed")
		}
	}
}

// Addr reports the bound address for a running service listener
func (r *Runner) Addr(serviceID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	srv, ok := r.servers[serviceID]
	if !ok {
		return "", false
	}
	return srv.Addr(), true
}
