package identity

import (
	"context"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

// Sweeper periodically purges expired guests so abandoned guest carts do not pile up.
type Sweeper struct {
	guests   GuestStore
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewSweeper(guests GuestStore, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		guests:   guests,
		interval: interval,
		log:      log.With("component", "GuestSweeper"),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.SweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := s.guests.DeleteExpired(sweepCtx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("guest sweep failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.log.Info("expired guests removed", "count", n)
	}
	return n
}
