package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type lockSweeper interface {
	ExpireStale(ctx context.Context) (units int, bookings int64, err error)
}

// Scheduler persists lapsed locks on a fixed interval. Lock expiry is
// already enforced on every read; the sweep makes it durable and moves
// abandoned bookings to expired.
type Scheduler struct {
	sweeper  lockSweeper
	interval time.Duration
	logger   *slog.Logger
}

func New(sweeper lockSweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Start sweeps until ctx is done. It always returns nil so it can run in an
// errgroup next to the HTTP server.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("lock sweeper started", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lock sweeper stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	units, bookings, err := s.sweeper.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("lock sweep failed", slog.String("error", err.Error()))
		return
	}

	if units > 0 || bookings > 0 {
		s.logger.Info("expired locks released",
			slog.Int("units", units),
			slog.Int64("bookings", bookings),
		)
	}
}
