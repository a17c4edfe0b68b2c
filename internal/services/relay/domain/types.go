// Package domain holds the relay service model and the ports its transports use
package domain

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
)

// MaxParameters bounds the declared parameter list of a command definition
const MaxParameters = 5

// QueueTTL is how long a triggered command stays visible to pollers
const QueueTTL = 60 * time.Second

// FoldName is the case-insensitive identity used for command names. A fresh
// Caser per call: Caser values are not safe for concurrent use
func FoldName(name string) string { return cases.Fold().String(name) }

// ServiceKey identifies a service by its owning guild, owning user, and name.
// The string id is only formatted at the HTTP/logging boundary
type ServiceKey struct {
	GuildID int64
	UserID  int64
	Name    string
}

// ID renders the stable composite identifier
func (k ServiceKey) ID() string {
	return fmt.Sprintf("%d-%d-%s", k.GuildID, k.UserID, k.Name)
}

// CommandDefinition is a named, parameterized trigger template owned by a service
type CommandDefinition struct {
	Name        string    `json:"command_name"`
	FullCommand string    `json:"full_command"`
	Parameters  []string  `json:"parameters"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   int64     `json:"created_by"`
}

// QueueEntry is one instantiation of a command, pending delivery to a poller
type QueueEntry struct {
	CommandID      string     `json:"command_id"`
	Command        string     `json:"command"`
	Parameters     []string   `json:"parameters"`
	FullCommand    string     `json:"full_command"`
	TriggeredBy    int64      `json:"triggered_by"`
	TriggeredAt    time.Time  `json:"triggered_at"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// Expired reports whether the entry is past the TTL at now
func (e QueueEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.TriggeredAt) > ttl
}

// Service is one relay instance: key material, listener endpoint, command set, queue
type Service struct {
	Key         ServiceKey
	ID          string
	Port        int
	APIKey      string
	SecretToken string
	URL         string
	Commands    []CommandDefinition
	CreatedAt   time.Time
	Active      bool
}

// ActiveCommands returns the active subset of the command list
func (s Service) ActiveCommands() []CommandDefinition {
	out := make([]CommandDefinition, 0, len(s.Commands))
	for _, c := range s.Commands {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}
