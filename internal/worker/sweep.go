package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/staymarket/staycore/internal/metrics"
)

const sweepBatchSize = 200

// expiredCanceller cancels pending-payment bookings past their deadline.
// Satisfied by the booking service.
type expiredCanceller interface {
	CancelExpired(ctx context.Context, limit int) (int, error)
}

// Sweep cancels pending-payment bookings whose deadline has passed, giving
// their nights back to the pool.
type Sweep struct {
	bookings expiredCanceller
	interval time.Duration
	log      *slog.Logger
}

func NewSweep(bookings expiredCanceller, interval time.Duration, log *slog.Logger) *Sweep {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &Sweep{bookings: bookings, interval: interval, log: log}
}

// Run executes one sweep immediately and then on every tick until the
// context is cancelled. The immediate pass matters after a restart: bookings
// that expired while the process was down are released right away instead of
// holding their nights for another interval.
func (s *Sweep) Run(ctx context.Context) error {
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweep) sweepOnce(ctx context.Context) {
	n, err := s.bookings.CancelExpired(ctx, sweepBatchSize)
	if err != nil {
		s.log.Error("expired booking sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		metrics.ExpiredBookingsSwept.Add(float64(n))
		s.log.Info("expired bookings cancelled", slog.Int("count", n))
	}
}
