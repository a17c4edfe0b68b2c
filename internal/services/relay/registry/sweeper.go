package registry

import (
	"context"
	"time"

	"bridgebot/internal/platform/logger"
)

// Sweeper periodically runs the TTL sweep across every queue so memory stays
// bounded even when a service is never polled. The queues sweep on access
// anyway; this only caps how long garbage can linger
type Sweeper struct {
	reg      *Registry
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper builds a sweeper; interval <= 0 defaults to half the queue TTL
func NewSweeper(reg *Registry, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = reg.cfg.QueueTTL / 2
	}
	return &Sweeper{
		reg:      reg,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop; it exits on ctx cancel or Stop
func (s *Sweeper) Start(ctx context.Context) {
	log := logger.Named("sweeper")
	log.Info().Dur("interval", s.interval).Msg("queue sweeper started")

	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case now := <-ticker.C:
				s.reg.SweepAll(now)
			}
		}
	}()
}

// Stop halts the loop and waits for it to exit
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
