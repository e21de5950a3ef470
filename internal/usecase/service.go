package usecase

import (
	"context"
	"fmt"

	"restaurant-reservation/internal/data/repository"
	"restaurant-reservation/pkg/clock"
	"restaurant-reservation/pkg/events"
	"restaurant-reservation/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Reservation ReservationService
	Sweeper     *ExpirySweeper

	repo      *repository.Repository
	allocator *NumberAllocator
}

func NewService(repo *repository.Repository, publisher events.Publisher, clk clock.Clock, config *utils.Config, log *zap.Logger) *Service {
	allocator := NewNumberAllocator(repo.Reservation.ExistsActiveNumber, config.Reservation.NumberAttempts)
	reservation := NewReservationService(repo, allocator, publisher, clk, RulesFromConfig(config.Reservation), log)

	return &Service{
		Reservation: reservation,
		Sweeper:     NewExpirySweeper(reservation, config.Reservation.SweepInterval, log),
		repo:        repo,
		allocator:   allocator,
	}
}

// Init continues reservation numbering after the most recently issued number.
func (s *Service) Init(ctx context.Context) error {
	latest, err := s.repo.Reservation.LatestNumber(ctx)
	if err != nil {
		return fmt.Errorf("load latest reservation number: %w", err)
	}
	s.allocator.Seed(latest)
	return nil
}
