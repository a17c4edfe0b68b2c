package queue_test

import (
	"testing"
	"time"

	perr "bridgebot/internal/platform/errors"
	"bridgebot/internal/services/relay/domain"
	"bridgebot/internal/services/relay/queue"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func entry(id string, at time.Time) domain.QueueEntry {
	return domain.QueueEntry{
		CommandID:   id,
		Command:     "teleport",
		TriggeredAt: at,
	}
}

func TestPendingReturnsInOrder(t *testing.T) {
	q := queue.New(60 * time.Second)
	q.Enqueue(entry("a_1", t0))
	q.Enqueue(entry("b_2", t0.Add(time.Second)))
	q.Enqueue(entry("c_3", t0.Add(2*time.Second)))

	got := q.Pending(t0.Add(3 * time.Second))
	if len(got) != 3 {
		t.Fatalf("expected 3 pending got %d", len(got))
	}
	for i, want := range []string{"a_1", "b_2", "c_3"} {
		if got[i].CommandID != want {
			t.Fatalf("position %d: expected %s got %s", i, want, got[i].CommandID)
		}
	}
}

func TestEntryVisibleJustInsideTTL(t *testing.T) {
	q := queue.New(60 * time.Second)
	q.Enqueue(entry("a_1", t0))

	got := q.Pending(t0.Add(59 * time.Second))
	if len(got) != 1 {
		t.Fatalf("expected entry still visible at 59s, got %d entries", len(got))
	}
}

func TestEntryEvictedPastTTL(t *testing.T) {
	q := queue.New(60 * time.Second)
	q.Enqueue(entry("a_1", t0))

	got := q.Pending(t0.Add(61 * time.Second))
	if len(got) != 0 {
		t.Fatalf("expected entry gone at 61s, got %d entries", len(got))
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after sweep, len %d", q.Len())
	}
}

func TestAcknowledgeRemovesFromPending(t *testing.T) {
	q := queue.New(60 * time.Second)
	q.Enqueue(entry("a_1", t0))
	q.Enqueue(entry("b_2", t0))

	now := t0.Add(time.Second)
	e, err := q.Acknowledge("a_1", now)
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if !e.Acknowledged || e.AcknowledgedAt == nil {
		t.Fatal("expected entry marked acknowledged with timestamp")
	}

	got := q.Pending(now)
	if len(got) != 1 || got[0].CommandID != "b_2" {
		t.Fatalf("expected only b_2 pending, got %+v", got)
	}
}

func TestAcknowledgeUnknownIsNotFound(t *testing.T) {
	q := queue.New(60 * time.Second)
	_, err := q.Acknowledge("nope", t0)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAcknowledgeTwiceIsNotFound(t *testing.T) {
	q := queue.New(60 * time.Second)
	q.Enqueue(entry("a_1", t0))

	if _, err := q.Acknowledge("a_1", t0.Add(time.Second)); err != nil {
		t.Fatalf("first acknowledge failed: %v", err)
	}
	_, err := q.Acknowledge("a_1", t0.Add(2*time.Second))
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("expected not found on repeat acknowledge, got %v", err)
	}
}

func TestAcknowledgeExpiredIsNotFound(t *testing.T) {
	q := queue.New(60 * time.Second)
	q.Enqueue(entry("a_1", t0))

	_, err := q.Acknowledge("a_1", t0.Add(2*time.Minute))
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("expected expired entry to be not found, got %v", err)
	}
}

func TestSweepDropsAcknowledgedHistory(t *testing.T) {
	q := queue.New(60 * time.Second)
	q.Enqueue(entry("a_1", t0))

	if _, err := q.Acknowledge("a_1", t0.Add(time.Second)); err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	q.Sweep(t0.Add(2 * time.Minute))

	// after the sweep the history is gone too, so the id reads as unknown
	_, err := q.Acknowledge("a_1", t0.Add(2*time.Minute))
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("expected not found after history sweep, got %v", err)
	}
}

func TestMixedExpirySweepsOnlyOld(t *testing.T) {
	q := queue.New(60 * time.Second)
	q.Enqueue(entry("old_1", t0))
	q.Enqueue(entry("new_2", t0.Add(50*time.Second)))

	got := q.Pending(t0.Add(70 * time.Second))
	if len(got) != 1 || got[0].CommandID != "new_2" {
		t.Fatalf("expected only new_2 to survive, got %+v", got)
	}
}
