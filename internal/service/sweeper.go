package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes abandoned guest carts.
type Sweeper struct {
	carts    *CartService
	interval time.Duration
	maxAge   time.Duration
}

func NewSweeper(carts *CartService, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{carts: carts, interval: interval, maxAge: maxAge}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Guest cart sweeper started", "interval", s.interval, "max_age", s.maxAge)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Guest cart sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.carts.SweepExpiredGuestCarts(ctx, s.maxAge); err != nil {
				slog.Error("Guest cart sweep failed", "error", err)
			}
		}
	}
}
