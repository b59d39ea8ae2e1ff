/*
scheduler.go - Automated slot expiry

PURPOSE:
  Periodically closes slots that reached their start time without any option
  filling, returning every pending reservation to its owner.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each pass calls Engine.ExpireStarted; slots settled meanwhile are skipped
  - Runs once immediately on Start

USAGE:
  scheduler := NewExpiryScheduler(engine, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ExpireSlot endpoint (manual expiry)
  - settlement/engine.go: ExpireSlot, ExpireStarted
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/slot-engine/settlement"
)

// ExpiryScheduler handles automated expiry of unfilled slots.
type ExpiryScheduler struct {
	Engine        *settlement.Engine
	CheckInterval time.Duration
	Enabled       bool

	log    *zap.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpiryScheduler creates a new scheduler checking every minute.
func NewExpiryScheduler(engine *settlement.Engine, log *zap.Logger) *ExpiryScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpiryScheduler{
		Engine:        engine,
		CheckInterval: time.Minute,
		Enabled:       true,
		log:           log.Named("expiry"),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (s *ExpiryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info("disabled, not starting")
		return
	}
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)

	s.log.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.log.Info("stopped")
}

func (s *ExpiryScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.CheckInterval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one expiry pass and returns the number of slots expired.
func (s *ExpiryScheduler) RunOnce(ctx context.Context) int {
	results, err := s.Engine.ExpireStarted(ctx)
	for _, r := range results {
		s.log.Info("slot expired",
			zap.String("slot_id", string(r.SlotID)),
			zap.Int("voided", len(r.Voided)),
			zap.String("released", r.Released.StringFixed(2)),
			zap.String("points_refunded", r.PointsRefunded.String()),
		)
	}
	if err != nil && ctx.Err() == nil {
		s.log.Error("expiry pass failed", zap.Error(err))
	}
	return len(results)
}
