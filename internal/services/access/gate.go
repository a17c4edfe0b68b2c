// Package access decides which chat users may drive a service besides its
// owner. Default deny: no grant, no access
package access

import (
	"sync"

	perr "bridgebot/internal/platform/errors"
)

// Level is a grant tier
type Level string

const (
	// LevelFull allows managing the service and triggering commands
	LevelFull Level = "full"
	// LevelCommands allows triggering commands only
	LevelCommands Level = "commands"
)

// Valid reports whether l is a known tier
func (l Level) Valid() bool { return l == LevelFull || l == LevelCommands }

// Satisfies reports whether a grant at l covers the need
func (l Level) Satisfies(need Level) bool {
	if l == LevelFull {
		return true
	}
	return l == need
}

// scope keys grants by the guild and the service owner inside it
type scope struct {
	GuildID int64
	OwnerID int64
}

// Gate holds the in-memory grant table
type Gate struct {
	mu     sync.Mutex
	grants map[scope]map[int64]Level
}

// NewGate builds an empty gate
func NewGate() *Gate {
	return &Gate{grants: make(map[scope]map[int64]Level)}
}

// Grant records that grantee may act on owner's services in the guild at the
// given level. Re-granting overwrites the previous level
func (g *Gate) Grant(guildID, ownerID, granteeID int64, level Level) error {
	if !level.Valid() {
		return perr.InvalidArgf("unknown access level %q", level)
	}
	if granteeID == ownerID {
		return perr.InvalidArgf("owner access is implicit")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s := scope{GuildID: guildID, OwnerID: ownerID}
	if g.grants[s] == nil {
		g.grants[s] = make(map[int64]Level)
	}
	g.grants[s][granteeID] = level
	return nil
}

// Revoke removes a grant; revoking an absent grant is a no-op
func (g *Gate) Revoke(guildID, ownerID, granteeID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := scope{GuildID: guildID, OwnerID: ownerID}
	if m, ok := g.grants[s]; ok {
		delete(m, granteeID)
		if len(m) == 0 {
			delete(g.grants, s)
		}
	}
}

// Allowed reports whether userID may act at the needed level on owner's
// services in the guild. The owner always may
func (g *Gate) Allowed(guildID, ownerID, userID int64, need Level) bool {
	if userID == ownerID {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.grants[scope{GuildID: guildID, OwnerID: ownerID}]
	if !ok {
		return false
	}
	lvl, ok := m[userID]
	return ok && lvl.Satisfies(need)
}

// Grants lists the current grants for an owner in a guild
func (g *Gate) Grants(guildID, ownerID int64) map[int64]Level {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := g.grants[scope{GuildID: guildID, OwnerID: ownerID}]
	out := make(map[int64]Level, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
