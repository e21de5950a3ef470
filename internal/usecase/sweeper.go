package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpirySweeper periodically expires lapsed reservations so rows do not stay
// active until someone happens to read them.
type ExpirySweeper struct {
	reservations ReservationService
	interval     time.Duration
	log          *zap.Logger
}

func NewExpirySweeper(reservations ReservationService, interval time.Duration, log *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		reservations: reservations,
		interval:     interval,
		log:          log.With(zap.String("service", "sweeper")),
	}
}

// Run blocks until ctx is done. A non-positive interval disables sweeping.
func (s *ExpirySweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("Expiry sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) Sweep(ctx context.Context) int {
	expired, err := s.reservations.ExpireLapsed(ctx)
	if err != nil {
		s.log.Error("Expiry sweep failed", zap.Error(err))
		return 0
	}
	if expired > 0 {
		s.log.Info("Expired lapsed reservations", zap.Int("count", expired))
	}
	return expired
}
