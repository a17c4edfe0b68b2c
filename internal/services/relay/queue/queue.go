// Package queue implements the per-service triggered-command queue with
// TTL-based lazy eviction. Correctness never depends on a background timer:
// every read path sweeps first, so a stale entry is never observed
package queue

import (
	"sync"
	"time"

	perr "bridgebot/internal/platform/errors"
	"bridgebot/internal/services/relay/domain"
)

// Queue holds an insertion-ordered pending list plus an id map that doubles
// as the triggered history inside the TTL window
type Queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending []domain.QueueEntry
	byID    map[string]*domain.QueueEntry
}

// New builds a queue with the given TTL; zero falls back to domain.QueueTTL
func New(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = domain.QueueTTL
	}
	return &Queue{
		ttl:  ttl,
		byID: make(map[string]*domain.QueueEntry),
	}
}

// Enqueue appends the entry to both the ordered queue and the history map
func (q *Queue) Enqueue(e domain.QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	stored := e
	q.byID[e.CommandID] = &stored
	q.pending = append(q.pending, e)
}

// Sweep purges everything older than the TTL from both structures,
// acknowledged or not
func (q *Queue) Sweep(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sweepLocked(now)
}

func (q *Queue) sweepLocked(now time.Time) {
	for id, e := range q.byID {
		if e.Expired(now, q.ttl) {
			delete(q.byID, id)
		}
	}
	kept := q.pending[:0]
	for _, e := range q.pending {
		if !e.Expired(now, q.ttl) {
			kept = append(kept, e)
		}
	}
	q.pending = kept
}

// Pending sweeps and returns a copy of the still-pending entries in
// insertion order
func (q *Queue) Pending(now time.Time) []domain.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sweepLocked(now)
	out := make([]domain.QueueEntry, len(q.pending))
	copy(out, q.pending)
	return out
}

// Acknowledge marks the entry delivered and removes it from the pending
// queue. The entry stays in the history map until the sweep takes it, so a
// repeat acknowledge inside the TTL window still reports not-found
func (q *Queue) Acknowledge(commandID string, now time.Time) (domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sweepLocked(now)

	e, ok := q.byID[commandID]
	if !ok || e.Acknowledged {
		return domain.QueueEntry{}, perr.NotFoundf("command %q not found", commandID)
	}

	e.Acknowledged = true
	ts := now
	e.AcknowledgedAt = &ts

	kept := q.pending[:0]
	for _, p := range q.pending {
		if p.CommandID != commandID {
			kept = append(kept, p)
		}
	}
	q.pending = kept

	return *e, nil
}

// Len reports the pending queue length without sweeping
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
