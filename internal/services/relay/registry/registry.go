// Package registry owns every live relay service record: key material,
// allocated ports, command lists, and queues. All access goes through its
// operations, which is what makes port and name uniqueness enforceable
package registry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	perr "bridgebot/internal/platform/errors"
	"bridgebot/internal/platform/logger"
	"bridgebot/internal/services/relay/domain"
	"bridgebot/internal/services/relay/queue"
)

// RunnerPort is the lifecycle manager seam: one listener per service id
type RunnerPort interface {
	Start(serviceID string, port int, h http.Handler) error
	Stop(ctx context.Context, serviceID string) error
}

// Config carries the registry tunables
type Config struct {
	// BasePort is where the port scan starts (default 8080)
	BasePort int
	// PortSpan bounds the scan range; exhaustion fails creation
	PortSpan int
	// PublicHost is the externally reachable host prefix for service URLs
	PublicHost string
	// QueueTTL is the triggered-command time to live
	QueueTTL time.Duration
	// MaxCommands caps active command definitions per service
	MaxCommands int
}

func (c Config) withDefaults() Config {
	if c.BasePort <= 0 {
		c.BasePort = 8080
	}
	if c.PortSpan <= 0 {
		c.PortSpan = 1000
	}
	if c.QueueTTL <= 0 {
		c.QueueTTL = domain.QueueTTL
	}
	if c.MaxCommands <= 0 {
		c.MaxCommands = 5
	}
	return c
}

type record struct {
	svc   domain.Service
	queue *queue.Queue
}

// Registry implements domain.RegistryPort
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	runner   RunnerPort
	factory  domain.HandlerFactory
	services map[string]*record
	log      logger.Logger
	now      func() time.Time // seam for tests
}

// New builds a registry. factory produces the HTTP handler mounted on each
// freshly created service listener
func New(cfg Config, runner RunnerPort, factory domain.HandlerFactory) *Registry {
	if runner == nil {
		panic("registry requires a non nil runner")
	}
	if factory == nil {
		panic("registry requires a non nil handler factory")
	}
	return &Registry{
		cfg:      cfg.withDefaults(),
		runner:   runner,
		factory:  factory,
		services: make(map[string]*record),
		log:      *logger.Named("registry"),
		now:      time.Now,
	}
}

// Create allocates a port, generates credentials, starts the listener, and
// stores the record. A bind failure rolls everything back: no record is kept
// whose listener never started
func (g *Registry) Create(ctx context.Context, key domain.ServiceKey) (domain.Credentials, error) {
	id := key.ID()

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.services[id]; exists {
		return domain.Credentials{}, perr.Conflictf("service %q already exists", id)
	}

	used := make(map[int]struct{}, len(g.services))
	for _, rec := range g.services {
		used[rec.svc.Port] = struct{}{}
	}
	port, err := AllocatePort(used, g.cfg.BasePort, g.cfg.PortSpan)
	if err != nil {
		return domain.Credentials{}, err
	}

	svc := domain.Service{
		Key:         key,
		ID:          id,
		Port:        port,
		APIKey:      newAPIKey(),
		SecretToken: newSecretToken(),
		URL:         fmt.Sprintf("%s:%d", g.cfg.PublicHost, port),
		CreatedAt:   g.now().UTC(),
		Active:      true,
	}
	rec := &record{svc: svc, queue: queue.New(g.cfg.QueueTTL)}

	// the record must be visible before the listener accepts its first
	// request, so store first and roll back if the bind fails
	g.services[id] = rec
	h := g.factory(&view{reg: g, id: id})
	if err := g.runner.Start(id, port, h); err != nil {
		delete(g.services, id)
		return domain.Credentials{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "listener bind failed on port %d", port)
	}

	g.log.Info().Str("service_id", id).Int("port", port).Msg("service created")

	return domain.Credentials{
		ServiceID:   id,
		APIKey:      svc.APIKey,
		SecretToken: svc.SecretToken,
		URL:         svc.URL,
		Port:        port,
	}, nil
}

// UpdateCommands wholesale-replaces the command list. Not-found if the
// service was stopped concurrently; callers are expected to tolerate that
func (g *Registry) UpdateCommands(ctx context.Context, serviceID string, commands []domain.CommandDefinition) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.services[serviceID]
	if !ok {
		return perr.NotFoundf("service %q not found", serviceID)
	}
	if err := g.validateCommands(commands); err != nil {
		return err
	}

	now := g.now().UTC()
	cp := make([]domain.CommandDefinition, len(commands))
	copy(cp, commands)
	for i := range cp {
		if cp[i].CreatedAt.IsZero() {
			cp[i].CreatedAt = now
		}
	}
	rec.svc.Commands = cp

	g.log.Info().Str("service_id", serviceID).Int("commands", len(cp)).Msg("commands replaced")
	return nil
}

// AddCommand appends a single definition, rejecting duplicates of an active
// command name (case-insensitive) and enforcing the active-command cap
func (g *Registry) AddCommand(ctx context.Context, serviceID string, def domain.CommandDefinition) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.services[serviceID]
	if !ok {
		return perr.NotFoundf("service %q not found", serviceID)
	}
	if def.Name == "" {
		return perr.InvalidArgf("command name is required")
	}
	if len(def.Parameters) > domain.MaxParameters {
		return perr.InvalidArgf("command %q declares more than %d parameters", def.Name, domain.MaxParameters)
	}

	folded := domain.FoldName(def.Name)
	active := 0
	for _, c := range rec.svc.Commands {
		if !c.Active {
			continue
		}
		active++
		if domain.FoldName(c.Name) == folded {
			return perr.DuplicateKeyf("command %q already exists", def.Name)
		}
	}
	if def.Active && active >= g.cfg.MaxCommands {
		return perr.InvalidArgf("service %q already has %d active commands", serviceID, g.cfg.MaxCommands)
	}

	if def.CreatedAt.IsZero() {
		def.CreatedAt = g.now().UTC()
	}
	rec.svc.Commands = append(rec.svc.Commands, def)
	return nil
}

// Stop is idempotent: unknown or already-stopped ids are a successful no-op.
// The listener socket closes before the record is forgotten, and the
// registry lock is not held across the drain so in-flight handlers can
// still finish
func (g *Registry) Stop(ctx context.Context, serviceID string) error {
	g.mu.Lock()
	rec, ok := g.services[serviceID]
	if !ok {
		g.mu.Unlock()
		return nil
	}
	rec.svc.Active = false
	g.mu.Unlock()

	if err := g.runner.Stop(ctx, serviceID); err != nil {
		g.log.Warn().Err(err).Str("service_id", serviceID).Msg("listener stop failed")
	}

	g.mu.Lock()
	delete(g.services, serviceID)
	g.mu.Unlock()

	g.log.Info().Str("service_id", serviceID).Msg("service stopped")
	return nil
}

// StopAll tears down every live service, used on process shutdown
func (g *Registry) StopAll(ctx context.Context) {
	g.mu.Lock()
	ids := make([]string, 0, len(g.services))
	for id := range g.services {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	for _, id := range ids {
		_ = g.Stop(ctx, id)
	}
}

// Get returns a copy of the service record
func (g *Registry) Get(serviceID string) (domain.Service, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.services[serviceID]
	if !ok {
		return domain.Service{}, false
	}
	return copyService(rec.svc), true
}

// List returns summaries of every live service
func (g *Registry) List() []domain.Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Summary, 0, len(g.services))
	for _, rec := range g.services {
		out = append(out, domain.Summary{
			ServiceID: rec.svc.ID,
			Name:      rec.svc.Key.Name,
			Port:      rec.svc.Port,
			Commands:  len(rec.svc.Commands),
			QueueLen:  rec.queue.Len(),
		})
	}
	return out
}

// SweepAll runs the TTL sweep over every queue; the background sweeper calls
// this to bound memory between accesses. Never required for correctness
func (g *Registry) SweepAll(now time.Time) {
	g.mu.Lock()
	queues := make([]*queue.Queue, 0, len(g.services))
	for _, rec := range g.services {
		queues = append(queues, rec.queue)
	}
	g.mu.Unlock()

	for _, q := range queues {
		q.Sweep(now)
	}
}

func (g *Registry) validateCommands(commands []domain.CommandDefinition) error {
	active := 0
	seen := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		if c.Name == "" {
			return perr.InvalidArgf("command name is required")
		}
		if len(c.Parameters) > domain.MaxParameters {
			return perr.InvalidArgf("command %q declares more than %d parameters", c.Name, domain.MaxParameters)
		}
		folded := domain.FoldName(c.Name)
		if _, dup := seen[folded]; dup {
			return perr.DuplicateKeyf("duplicate command name %q", c.Name)
		}
		seen[folded] = struct{}{}
		if c.Active {
			active++
		}
	}
	if active > g.cfg.MaxCommands {
		return perr.InvalidArgf("at most %d active commands per service", g.cfg.MaxCommands)
	}
	return nil
}

func copyService(s domain.Service) domain.Service {
	cp := s
	cp.Commands = make([]domain.CommandDefinition, len(s.Commands))
	copy(cp.Commands, s.Commands)
	return cp
}

// view binds a service id to the registry for the handler side.
// It implements domain.ServiceView
type view struct {
	reg *Registry
	id  string
}

func (v *view) rec() (*record, bool) {
	v.reg.mu.Lock()
	defer v.reg.mu.Unlock()
	rec, ok := v.reg.services[v.id]
	return rec, ok
}

// Snapshot returns a copy of the service record, false once stopped
func (v *view) Snapshot() (domain.Service, bool) {
	v.reg.mu.Lock()
	defer v.reg.mu.Unlock()
	rec, ok := v.reg.services[v.id]
	if !ok {
		return domain.Service{}, false
	}
	return copyService(rec.svc), true
}

// Enqueue appends to the service queue; a stopped service drops the entry
func (v *view) Enqueue(e domain.QueueEntry) {
	if rec, ok := v.rec(); ok {
		rec.queue.Enqueue(e)
	}
}

// Sweep evicts expired entries
func (v *view) Sweep(now time.Time) {
	if rec, ok := v.rec(); ok {
		rec.queue.Sweep(now)
	}
}

// Pending sweeps and returns the live queue in order
func (v *view) Pending(now time.Time) []domain.QueueEntry {
	rec, ok := v.rec()
	if !ok {
		return nil
	}
	return rec.queue.Pending(now)
}

// Acknowledge marks an entry delivered
func (v *view) Acknowledge(commandID string, now time.Time) (domain.QueueEntry, error) {
	rec, ok := v.rec()
	if !ok {
		return domain.QueueEntry{}, perr.NotFoundf("command %q not found", commandID)
	}
	return rec.queue.Acknowledge(commandID, now)
}

// QueueLen reports the pending length without sweeping
func (v *view) QueueLen() int {
	rec, ok := v.rec()
	if !ok {
		return 0
	}
	return rec.queue.Len()
}
