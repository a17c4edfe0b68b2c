package domain

import (
	"context"
	"net/http"
	"time"
)

// ServiceView is the per-service surface the relay endpoint handlers work
// against. The registry hands one to the handler factory at creation time;
// handlers never touch registry internals
type ServiceView interface {
	// Snapshot returns a copy of the service record, false once stopped
	Snapshot() (Service, bool)
	// Enqueue appends a triggered command to the queue and history
	Enqueue(e QueueEntry)
	// Sweep evicts entries older than the TTL
	Sweep(now time.Time)
	// Pending sweeps, then returns the still-pending entries in order
	Pending(now time.Time) []QueueEntry
	// Acknowledge marks an entry delivered; not-found if absent or expired
	Acknowledge(commandID string, now time.Time) (QueueEntry, error)
	// QueueLen reports the pending queue length without sweeping
	QueueLen() int
}

// HandlerFactory builds the HTTP handler for a freshly created service
type HandlerFactory func(view ServiceView) http.Handler

// RegistryPort is the operation set the control plane (and the chat bot
// behind it) drives the relay with
type RegistryPort interface {
	Create(ctx context.Context, key ServiceKey) (Credentials, error)
	UpdateCommands(ctx context.Context, serviceID string, commands []CommandDefinition) error
	AddCommand(ctx context.Context, serviceID string, def CommandDefinition) error
	Stop(ctx context.Context, serviceID string) error
	Get(serviceID string) (Service, bool)
	List() []Summary
}
