package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-reservation/internal/data/entity"
	"restaurant-reservation/internal/data/repository"
	"restaurant-reservation/internal/dto/request"
	"restaurant-reservation/internal/dto/response"
	"restaurant-reservation/pkg/clock"
	"restaurant-reservation/pkg/events"
	"restaurant-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// createAttempts bounds retries when a number is taken between probe and insert.
const createAttempts = 3

var sweepBatchSize = 500

type ReservationService interface {
	// Member endpoints
	CreateReservation(ctx context.Context, memberID uuid.UUID, req *request.CreateReservationRequest) (*response.ReservationResponse, error)
	CancelReservation(ctx context.Context, memberID uuid.UUID, number string, req *request.CancelReservationRequest) (*response.ReservationResponse, error)
	VisitReservation(ctx context.Context, memberID uuid.UUID, number string, req *request.VisitReservationRequest) (*response.ReservationResponse, error)
	GetMemberReservations(ctx context.Context, memberID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error)

	// Manager endpoints
	AcceptReservation(ctx context.Context, managerID uuid.UUID, number string) (*response.ReservationResponse, error)
	DenyReservation(ctx context.Context, managerID uuid.UUID, number string, req *request.DenyReservationRequest) (*response.ReservationResponse, error)
	GetManagerReservations(ctx context.Context, managerID uuid.UUID, restaurantName string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ManagerReservationResponse], error)

	// Either party
	CheckReservation(ctx context.Context, actorID uuid.UUID, number string) (*response.ReservationResponse, error)

	// ExpireLapsed persists the expiry of every active reservation past its
	// check-in deadline and returns how many were expired.
	ExpireLapsed(ctx context.Context) (int, error)
}

// Rules are the timing parameters of the lifecycle.
type Rules struct {
	Location      *time.Location
	CutoffHour    int
	CancelLockout time.Duration
	CheckInGrace  time.Duration
}

func RulesFromConfig(config utils.ReservationConfig) Rules {
	rules := Rules{
		Location:      config.Location(),
		CutoffHour:    config.CutoffHour,
		CancelLockout: config.CancelLockout,
		CheckInGrace:  config.CheckInGrace,
	}
	if rules.CancelLockout <= 0 {
		rules.CancelLockout = time.Hour
	}
	if rules.CheckInGrace <= 0 {
		rules.CheckInGrace = 10 * time.Minute
	}
	return rules
}

type reservationService struct {
	repo      *repository.Repository
	allocator *NumberAllocator
	publisher events.Publisher
	clock     clock.Clock
	rules     Rules
	log       *zap.Logger
}

func NewReservationService(repo *repository.Repository, allocator *NumberAllocator, publisher events.Publisher, clk clock.Clock, rules Rules, log *zap.Logger) ReservationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if rules.Location == nil {
		rules.Location = time.Local
	}
	return &reservationService{
		repo:      repo,
		allocator: allocator,
		publisher: publisher,
		clock:     clk,
		rules:     rules,
		log:       log.With(zap.String("service", "reservation")),
	}
}

func (s *reservationService) now() time.Time {
	return s.clock.Now().In(s.rules.Location)
}

func (s *reservationService) CreateReservation(ctx context.Context, memberID uuid.UUID, req *request.CreateReservationRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create reservation validation failed", zap.Any("errors", errs))
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	hour := strings.TrimSpace(req.Time)
	if _, err := clock.ParseHour(hour); err != nil {
		return nil, ErrInvalidHour
	}

	member, err := s.repo.Member.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("find member %s: %w", memberID, err)
	}
	if member == nil {
		return nil, ErrNotFoundMember
	}

	restaurant, err := s.repo.Restaurant.FindByName(ctx, strings.TrimSpace(req.RestaurantName))
	if err != nil {
		return nil, fmt.Errorf("find restaurant %s: %w", req.RestaurantName, err)
	}
	if restaurant == nil {
		return nil, ErrNotFoundRestaurant
	}

	exists, err := s.repo.Reservation.ExistsActive(ctx, member.ID, restaurant.ID)
	if err != nil {
		s.log.Error("Failed to check active reservation", zap.Error(err))
		return nil, fmt.Errorf("check active reservation: %w", err)
	}
	if exists {
		return nil, ErrAlreadyExistReservation
	}

	now := s.now()

	denied, err := s.repo.Reservation.ExistsDeniedForHour(ctx, member.ID, restaurant.ID, hour, clock.At(now, 0))
	if err != nil {
		s.log.Error("Failed to check denied reservations", zap.Error(err))
		return nil, fmt.Errorf("check denied reservation: %w", err)
	}
	if denied {
		return nil, ErrImpossibleReservationForDenied
	}

	openHour, closeHour := restaurant.Hours()
	if err := clock.CheckBookableWindow(hour, openHour, closeHour, now, s.rules.CutoffHour); err != nil {
		s.log.Debug("Requested hour outside bookable window",
			zap.String("restaurant", restaurant.Name),
			zap.String("hour", hour),
			zap.Error(err),
		)
		return nil, ErrImpossibleReservation
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		number, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, err
		}

		reservation := &entity.Reservation{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			Number:         number,
			MemberID:       member.ID,
			RestaurantID:   restaurant.ID,
			RequestedHour:  hour,
			Status:         entity.ReservationStatusPending,
			MemberUserID:   member.UserID,
			RestaurantName: restaurant.Name,
		}

		err = s.repo.Reservation.Create(ctx, reservation)
		switch {
		case errors.Is(err, repository.ErrDuplicateNumber):
			s.log.Warn("Reservation number taken concurrently, retrying", zap.String("reservation_number", number))
			continue
		case errors.Is(err, repository.ErrDuplicateActive):
			return nil, ErrAlreadyExistReservation
		case err != nil:
			s.log.Error("Failed to create reservation", zap.Error(err))
			return nil, fmt.Errorf("create reservation: %w", err)
		}

		s.publish(ctx, events.ReservationCreated, reservation)
		s.log.Info("Reservation created",
			zap.String("reservation_number", reservation.Number),
			zap.String("member_id", member.ID.String()),
			zap.String("restaurant", restaurant.Name),
			zap.String("hour", hour),
		)

		resp := response.ReservationToResponse(reservation, reservation.Status)
		return &resp, nil
	}

	return nil, ErrNumberExhausted
}

func (s *reservationService) CancelReservation(ctx context.Context, memberID uuid.UUID, number string, req *request.CancelReservationRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	reservation, err := s.findReservation(ctx, number)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.rejectIfLapsed(ctx, reservation, now); err != nil {
		return nil, err
	}

	if reservation.MemberID != memberID {
		return nil, ErrDiffReservationMember
	}
	if !reservation.Status.IsActive() {
		return nil, terminalError(reservation.Status)
	}

	slot, err := reservation.SlotTime(s.rules.Location)
	if err != nil {
		return nil, fmt.Errorf("slot time of reservation %s: %w", number, err)
	}
	if clock.CancelLocked(slot, now, s.rules.CancelLockout) {
		return nil, ErrImpossibleCancel
	}

	reason := strings.TrimSpace(req.Reason)
	if err := s.transition(ctx, reservation, entity.ReservationStatusCanceled, &reason, now, nil); err != nil {
		return nil, err
	}

	resp := response.ReservationToResponse(reservation, reservation.Status)
	return &resp, nil
}

func (s *reservationService) AcceptReservation(ctx context.Context, managerID uuid.UUID, number string) (*response.ReservationResponse, error) {
	reservation, err := s.findManagedReservation(ctx, managerID, number)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, reservation, entity.ReservationStatusAccepted, nil, s.now(), nil); err != nil {
		return nil, err
	}

	resp := response.ReservationToResponse(reservation, reservation.Status)
	return &resp, nil
}

func (s *reservationService) DenyReservation(ctx context.Context, managerID uuid.UUID, number string, req *request.DenyReservationRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	reservation, err := s.findManagedReservation(ctx, managerID, number)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if err := s.transition(ctx, reservation, entity.ReservationStatusDenied, &reason, s.now(), nil); err != nil {
		return nil, err
	}

	resp := response.ReservationToResponse(reservation, reservation.Status)
	return &resp, nil
}

func (s *reservationService) VisitReservation(ctx context.Context, memberID uuid.UUID, number string, req *request.VisitReservationRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	reservation, err := s.findReservation(ctx, number)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.rejectIfLapsed(ctx, reservation, now); err != nil {
		return nil, err
	}

	if reservation.Status != entity.ReservationStatusAccepted {
		return nil, ErrImpossibleVisit
	}
	if reservation.MemberID != memberID {
		return nil, ErrDiffReservationMember
	}
	if reservation.RestaurantName != strings.TrimSpace(req.RestaurantName) {
		return nil, ErrDiffReservationRestaurant
	}

	grantReview := func(ctx context.Context, tx *repository.Repository) error {
		if err := tx.Member.GrantReviewPermission(ctx, reservation.MemberID); err != nil {
			return fmt.Errorf("grant review permission: %w", err)
		}
		return nil
	}
	if err := s.transition(ctx, reservation, entity.ReservationStatusVisited, nil, now, grantReview); err != nil {
		return nil, err
	}

	resp := response.ReservationToResponse(reservation, reservation.Status)
	return &resp, nil
}

func (s *reservationService) CheckReservation(ctx context.Context, actorID uuid.UUID, number string) (*response.ReservationResponse, error) {
	reservation, err := s.cachedReservation(ctx, number)
	if err != nil {
		return nil, err
	}

	if reservation.MemberID != actorID {
		restaurant, err := s.repo.Restaurant.FindByID(ctx, reservation.RestaurantID)
		if err != nil {
			return nil, fmt.Errorf("find restaurant %s: %w", reservation.RestaurantID, err)
		}
		if restaurant == nil || restaurant.ManagerID != actorID {
			return nil, s.foreignActorError(ctx, actorID)
		}
	}

	now := s.now()
	if _, err := s.expireIfLapsed(ctx, reservation, now); err != nil {
		// the view still reports the effective status
		s.log.Warn("Failed to persist reservation expiry", zap.String("reservation_number", number), zap.Error(err))
	}

	resp := response.ReservationToResponse(reservation, reservation.EffectiveStatus(now, s.rules.Location, s.rules.CheckInGrace))
	return &resp, nil
}

func (s *reservationService) GetMemberReservations(ctx context.Context, memberID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error) {
	member, err := s.repo.Member.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("find member %s: %w", memberID, err)
	}
	if member == nil {
		return nil, ErrNotFoundMember
	}

	reservations, err := s.repo.Reservation.FindByMemberID(ctx, member.ID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list member reservations", zap.Error(err))
		return nil, fmt.Errorf("list member reservations: %w", err)
	}

	total, err := s.repo.Reservation.CountByMemberID(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("count member reservations: %w", err)
	}

	now := s.now()
	data := make([]response.ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		data = append(data, response.ReservationToResponse(r, r.EffectiveStatus(now, s.rules.Location, s.rules.CheckInGrace)))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *reservationService) GetManagerReservations(ctx context.Context, managerID uuid.UUID, restaurantName string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ManagerReservationResponse], error) {
	restaurant, err := s.repo.Restaurant.FindByName(ctx, strings.TrimSpace(restaurantName))
	if err != nil {
		return nil, fmt.Errorf("find restaurant %s: %w", restaurantName, err)
	}
	if restaurant == nil {
		return nil, ErrNotFoundRestaurant
	}
	if restaurant.ManagerID != managerID {
		return nil, ErrDiffReservationManager
	}

	reservations, err := s.repo.Reservation.FindActiveByRestaurantID(ctx, restaurant.ID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list restaurant reservations", zap.Error(err))
		return nil, fmt.Errorf("list restaurant reservations: %w", err)
	}

	total, err := s.repo.Reservation.CountActiveByRestaurantID(ctx, restaurant.ID)
	if err != nil {
		return nil, fmt.Errorf("count restaurant reservations: %w", err)
	}

	now := s.now()
	data := make([]response.ManagerReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		data = append(data, response.ReservationToManagerResponse(r, r.EffectiveStatus(now, s.rules.Location, s.rules.CheckInGrace)))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *reservationService) ExpireLapsed(ctx context.Context) (int, error) {
	var (
		afterCreatedAt time.Time
		afterID        uuid.UUID
		expired        int
	)

	now := s.now()
	for {
		batch, err := s.repo.Reservation.FindActive(ctx, afterCreatedAt, afterID, sweepBatchSize)
		if err != nil {
			return expired, fmt.Errorf("list active reservations: %w", err)
		}

		for _, r := range batch {
			fired, err := s.expireIfLapsed(ctx, r, now)
			if err != nil {
				s.log.Warn("Failed to expire reservation", zap.String("reservation_number", r.Number), zap.Error(err))
				continue
			}
			if fired {
				expired++
			}
		}

		if len(batch) < sweepBatchSize {
			return expired, nil
		}
		last := batch[len(batch)-1]
		afterCreatedAt, afterID = last.CreatedAt, last.ID
	}
}

func (s *reservationService) findReservation(ctx context.Context, number string) (*entity.Reservation, error) {
	reservation, err := s.repo.Reservation.FindByNumber(ctx, number)
	if err != nil {
		s.log.Error("Failed to find reservation", zap.String("reservation_number", number), zap.Error(err))
		return nil, fmt.Errorf("find reservation %s: %w", number, err)
	}
	if reservation == nil {
		return nil, ErrNotFoundReservation
	}
	return reservation, nil
}

// cachedReservation serves terminal reservations from the cache and reads active ones from the database.
func (s *reservationService) cachedReservation(ctx context.Context, number string) (*entity.Reservation, error) {
	cached, err := s.repo.Cache.Get(ctx, number)
	if err != nil {
		s.log.Warn("Reservation cache read failed", zap.String("reservation_number", number), zap.Error(err))
	}
	if cached != nil && cached.Status.IsTerminal() {
		return cached, nil
	}

	reservation, err := s.findReservation(ctx, number)
	if err != nil {
		return nil, err
	}
	if !reservation.Status.IsTerminal() {
		return reservation, nil
	}
	if err := s.repo.Cache.Set(ctx, reservation); err != nil {
		s.log.Warn("Reservation cache write failed", zap.String("reservation_number", number), zap.Error(err))
	}
	return reservation, nil
}

// findManagedReservation loads a pending reservation of a restaurant run by managerID.
func (s *reservationService) findManagedReservation(ctx context.Context, managerID uuid.UUID, number string) (*entity.Reservation, error) {
	reservation, err := s.findReservation(ctx, number)
	if err != nil {
		return nil, err
	}

	if err := s.rejectIfLapsed(ctx, reservation, s.now()); err != nil {
		return nil, err
	}

	restaurant, err := s.repo.Restaurant.FindByID(ctx, reservation.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("find restaurant %s: %w", reservation.RestaurantID, err)
	}
	if restaurant == nil {
		return nil, ErrNotFoundRestaurant
	}
	if restaurant.ManagerID != managerID {
		return nil, ErrDiffReservationManager
	}

	if reservation.Status != entity.ReservationStatusPending {
		return nil, terminalError(reservation.Status)
	}
	return reservation, nil
}

func (s *reservationService) foreignActorError(ctx context.Context, actorID uuid.UUID) error {
	actor, err := s.repo.Member.FindByID(ctx, actorID)
	if err == nil && actor != nil && actor.Role == entity.RoleManager {
		return ErrDiffReservationManager
	}
	return ErrDiffReservationMember
}

// rejectIfLapsed expires a lapsed reservation and reports AUTO_CANCEL.
func (s *reservationService) rejectIfLapsed(ctx context.Context, r *entity.Reservation, now time.Time) error {
	fired, err := s.expireIfLapsed(ctx, r, now)
	if err != nil {
		return err
	}
	if fired || r.Status == entity.ReservationStatusExpired {
		return ErrAutoCancel
	}
	return nil
}

// expireIfLapsed persists the expiry of a lapsed active reservation and
// reports whether r is now expired.
func (s *reservationService) expireIfLapsed(ctx context.Context, r *entity.Reservation, now time.Time) (bool, error) {
	if !r.Lapsed(now, s.rules.Location, s.rules.CheckInGrace) {
		return false, nil
	}

	message := entity.AutoExpireMessage
	err := s.transition(ctx, r, entity.ReservationStatusExpired, &message, now, nil)
	if errors.Is(err, ErrReservationConflict) {
		// someone else moved it first, report what they left behind
		fresh, findErr := s.findReservation(ctx, r.Number)
		if findErr != nil {
			return false, findErr
		}
		*r = *fresh
		return r.Status == entity.ReservationStatusExpired, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// transition moves r to next with a compare-and-set on its current status.
// extra runs in the same transaction.
func (s *reservationService) transition(ctx context.Context, r *entity.Reservation, next entity.ReservationStatus, resolution *string, now time.Time, extra func(ctx context.Context, tx *repository.Repository) error) error {
	from := r.Status
	updated := *r
	if err := updated.Transition(next, resolution, now); err != nil {
		return terminalError(from)
	}

	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context, tx *repository.Repository) error {
		if err := tx.Reservation.UpdateTransition(ctx, &updated, from); err != nil {
			return err
		}
		if extra != nil {
			return extra(ctx, tx)
		}
		return nil
	})
	if errors.Is(err, repository.ErrStaleReservation) {
		s.log.Warn("Concurrent reservation update", zap.String("reservation_number", r.Number), zap.String("from", string(from)), zap.String("to", string(next)))
		return ErrReservationConflict
	}
	if err != nil {
		s.log.Error("Failed to update reservation", zap.String("reservation_number", r.Number), zap.Error(err))
		return fmt.Errorf("update reservation %s: %w", r.Number, err)
	}

	*r = updated
	if err := s.repo.Cache.Delete(ctx, r.Number); err != nil {
		s.log.Warn("Reservation cache eviction failed", zap.String("reservation_number", r.Number), zap.Error(err))
	}
	s.publish(ctx, subjectFor(next), r)
	s.log.Info("Reservation status changed",
		zap.String("reservation_number", r.Number),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)
	return nil
}

func (s *reservationService) publish(ctx context.Context, subject string, r *entity.Reservation) {
	event := events.ReservationEvent{
		Number:         r.Number,
		MemberID:       r.MemberID.String(),
		RestaurantID:   r.RestaurantID.String(),
		RestaurantName: r.RestaurantName,
		RequestedHour:  r.RequestedHour,
		Status:         string(r.Status),
		OccurredAt:     r.UpdatedAt,
	}
	if r.Resolution != nil {
		event.Resolution = *r.Resolution
	}

	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.log.Warn("Failed to publish reservation event", zap.String("subject", subject), zap.Error(err))
	}
}

func subjectFor(status entity.ReservationStatus) string {
	switch status {
	case entity.ReservationStatusAccepted:
		return events.ReservationAccepted
	case entity.ReservationStatusDenied:
		return events.ReservationDenied
	case entity.ReservationStatusCanceled:
		return events.ReservationCanceled
	case entity.ReservationStatusVisited:
		return events.ReservationVisited
	case entity.ReservationStatusExpired:
		return events.ReservationExpired
	}
	return events.ReservationCreated
}

// terminalError explains why a reservation in status can no longer move.
func terminalError(status entity.ReservationStatus) error {
	switch status {
	case entity.ReservationStatusAccepted:
		return ErrAlreadyAcceptedReservation
	case entity.ReservationStatusDenied:
		return ErrAlreadyDeniedReservation
	case entity.ReservationStatusCanceled:
		return ErrAlreadyCanceledReservation
	case entity.ReservationStatusVisited:
		return ErrAlreadyUsedReservation
	case entity.ReservationStatusExpired:
		return ErrAutoCancel
	}
	return ErrReservationConflict
}
