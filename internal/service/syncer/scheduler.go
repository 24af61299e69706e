package syncer

import (
	"context"
	"errors"
	"time"

	"log/slog"
)

// Scheduler triggers periodic full reconciliation runs. It is the serialized
// caller the concurrency model expects: runs never overlap because RunFull
// refuses to, and the scheduler just skips that tick.
type Scheduler struct {
	syncer   *Syncer
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler constructs a Scheduler, or nil when no interval is configured.
func NewScheduler(s *Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	if s == nil || interval <= 0 {
		return nil
	}
	if logger != nil {
		logger = logger.With("component", "scheduler")
	}
	return &Scheduler{syncer: s, interval: interval, logger: logger}
}

// Run blocks until ctx is done, starting a full run every interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.syncer.RunFull(ctx); err != nil {
				if errors.Is(err, ErrRunInFlight) {
					s.logger.Warn("skipping scheduled run: previous run still in flight")
					continue
				}
				s.logger.Error("scheduled reconciliation failed", "error", err)
			}
		}
	}
}
