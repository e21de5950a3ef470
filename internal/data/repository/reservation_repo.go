package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-reservation/internal/data/entity"
	"restaurant-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	activeNumberConstraint = "reservations_active_number_key"
	activePairConstraint   = "reservations_active_pair_key"
)

const reservationSelect = `
	SELECT rv.id, rv.number, rv.member_id, rv.restaurant_id, rv.requested_hour,
	       rv.status, rv.resolution, rv.resolved_at, rv.created_at, rv.updated_at,
	       m.user_id, rs.name
	FROM reservations rv
	JOIN members m ON m.id = rv.member_id
	JOIN restaurants rs ON rs.id = rv.restaurant_id
`

type ReservationRepository interface {
	Create(ctx context.Context, reservation *entity.Reservation) error
	FindByNumber(ctx context.Context, number string) (*entity.Reservation, error)
	FindByMemberID(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]*entity.Reservation, error)
	CountByMemberID(ctx context.Context, memberID uuid.UUID) (int64, error)
	FindActiveByRestaurantID(ctx context.Context, restaurantID uuid.UUID, limit, offset int) ([]*entity.Reservation, error)
	CountActiveByRestaurantID(ctx context.Context, restaurantID uuid.UUID) (int64, error)
	FindActive(ctx context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*entity.Reservation, error)
	LatestNumber(ctx context.Context) (string, error)

	// Business queries
	ExistsActive(ctx context.Context, memberID, restaurantID uuid.UUID) (bool, error)
	ExistsActiveNumber(ctx context.Context, number string) (bool, error)
	ExistsDeniedForHour(ctx context.Context, memberID, restaurantID uuid.UUID, hour string, since time.Time) (bool, error)
	UpdateTransition(ctx context.Context, reservation *entity.Reservation, from entity.ReservationStatus) error
}

type reservationRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewReservationRepository(db database.DBTX, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

// Create inserts a pending reservation. The partial unique indexes on active
// rows surface as ErrDuplicateNumber or ErrDuplicateActive.
func (r *reservationRepository) Create(ctx context.Context, reservation *entity.Reservation) error {
	query := `
		INSERT INTO reservations (id, number, member_id, restaurant_id, requested_hour,
		                          status, resolution, resolved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		reservation.ID,
		reservation.Number,
		reservation.MemberID,
		reservation.RestaurantID,
		reservation.RequestedHour,
		reservation.Status,
		reservation.Resolution,
		reservation.ResolvedAt,
		reservation.CreatedAt,
		reservation.UpdatedAt,
	)

	if constraint, ok := uniqueConstraint(err); ok {
		switch constraint {
		case activeNumberConstraint:
			return fmt.Errorf("create reservation %s: %w", reservation.Number, ErrDuplicateNumber)
		case activePairConstraint:
			return fmt.Errorf("create reservation %s: %w", reservation.Number, ErrDuplicateActive)
		}
	}
	if err != nil {
		r.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("reservation_number", reservation.Number),
			zap.String("member_id", reservation.MemberID.String()),
		)
		return fmt.Errorf("create reservation %s: %w", reservation.Number, err)
	}

	return nil
}

// FindByNumber returns the most recent reservation issued with number.
func (r *reservationRepository) FindByNumber(ctx context.Context, number string) (*entity.Reservation, error) {
	query := reservationSelect + `
		WHERE rv.number = $1
		ORDER BY rv.created_at DESC
		LIMIT 1
	`

	reservation, err := scanReservation(r.db.QueryRow(ctx, query, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation by number",
			zap.Error(err),
			zap.String("reservation_number", number),
		)
		return nil, fmt.Errorf("find reservation by number %s: %w", number, err)
	}

	return reservation, nil
}

func (r *reservationRepository) FindByMemberID(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	query := reservationSelect + `
		WHERE rv.member_id = $1
		ORDER BY rv.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, memberID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reservations by member ID",
			zap.Error(err),
			zap.String("member_id", memberID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find reservations by member ID %s: %w", memberID.String(), err)
	}

	return r.collect(rows)
}

func (r *reservationRepository) CountByMemberID(ctx context.Context, memberID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE member_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, memberID).Scan(&count); err != nil {
		r.log.Error("Failed to count reservations by member ID",
			zap.Error(err),
			zap.String("member_id", memberID.String()),
		)
		return 0, fmt.Errorf("count reservations by member ID %s: %w", memberID.String(), err)
	}

	return count, nil
}

func (r *reservationRepository) FindActiveByRestaurantID(ctx context.Context, restaurantID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	query := reservationSelect + `
		WHERE rv.restaurant_id = $1 AND rv.status IN ('pending', 'accepted')
		ORDER BY rv.created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, restaurantID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reservations by restaurant ID",
			zap.Error(err),
			zap.String("restaurant_id", restaurantID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find reservations by restaurant ID %s: %w", restaurantID.String(), err)
	}

	return r.collect(rows)
}

func (r *reservationRepository) CountActiveByRestaurantID(ctx context.Context, restaurantID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE restaurant_id = $1 AND status IN ('pending', 'accepted')`

	var count int64
	if err := r.db.QueryRow(ctx, query, restaurantID).Scan(&count); err != nil {
		r.log.Error("Failed to count reservations by restaurant ID",
			zap.Error(err),
			zap.String("restaurant_id", restaurantID.String()),
		)
		return 0, fmt.Errorf("count reservations by restaurant ID %s: %w", restaurantID.String(), err)
	}

	return count, nil
}

// FindActive returns active reservations created after the (afterCreatedAt, afterID)
// cursor, oldest first, for the expiry sweep.
func (r *reservationRepository) FindActive(ctx context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*entity.Reservation, error) {
	query := reservationSelect + `
		WHERE rv.status IN ('pending', 'accepted')
			AND (rv.created_at, rv.id) > ($1, $2)
		ORDER BY rv.created_at ASC, rv.id ASC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, afterCreatedAt, afterID, limit)
	if err != nil {
		r.log.Error("Failed to find active reservations",
			zap.Error(err),
			zap.Time("after_created_at", afterCreatedAt),
			zap.String("after_id", afterID.String()),
		)
		return nil, fmt.Errorf("find active reservations: %w", err)
	}

	return r.collect(rows)
}

// LatestNumber returns the number of the newest reservation, empty if none.
func (r *reservationRepository) LatestNumber(ctx context.Context) (string, error) {
	query := `SELECT number FROM reservations ORDER BY created_at DESC LIMIT 1`

	var number string
	err := r.db.QueryRow(ctx, query).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		r.log.Error("Failed to read latest reservation number", zap.Error(err))
		return "", fmt.Errorf("latest reservation number: %w", err)
	}

	return number, nil
}

func (r *reservationRepository) ExistsActive(ctx context.Context, memberID, restaurantID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE member_id = $1 AND restaurant_id = $2 AND status IN ('pending', 'accepted')
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, memberID, restaurantID).Scan(&exists); err != nil {
		r.log.Error("Failed to check active reservation",
			zap.Error(err),
			zap.String("member_id", memberID.String()),
			zap.String("restaurant_id", restaurantID.String()),
		)
		return false, fmt.Errorf("check active reservation for member %s: %w", memberID.String(), err)
	}

	return exists, nil
}

func (r *reservationRepository) ExistsActiveNumber(ctx context.Context, number string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM reservations WHERE number = $1 AND status IN ('pending', 'accepted'))`

	var exists bool
	if err := r.db.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		r.log.Error("Failed to check reservation number",
			zap.Error(err),
			zap.String("reservation_number", number),
		)
		return false, fmt.Errorf("check reservation number %s: %w", number, err)
	}

	return exists, nil
}

// ExistsDeniedForHour reports whether a reservation created since since was
// denied for the same member, restaurant and hour.
func (r *reservationRepository) ExistsDeniedForHour(ctx context.Context, memberID, restaurantID uuid.UUID, hour string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE member_id = $1 AND restaurant_id = $2 AND requested_hour = $3
			  AND status = 'denied' AND created_at >= $4
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, memberID, restaurantID, hour, since).Scan(&exists); err != nil {
		r.log.Error("Failed to check denied reservation",
			zap.Error(err),
			zap.String("member_id", memberID.String()),
			zap.String("hour", hour),
		)
		return false, fmt.Errorf("check denied reservation for member %s: %w", memberID.String(), err)
	}

	return exists, nil
}

// UpdateTransition persists a status change only if the stored status is
// still from. Losing a concurrent race yields ErrStaleReservation.
func (r *reservationRepository) UpdateTransition(ctx context.Context, reservation *entity.Reservation, from entity.ReservationStatus) error {
	query := `
		UPDATE reservations
		SET status = $3, resolution = $4, resolved_at = $5, updated_at = $6
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query,
		reservation.ID,
		from,
		reservation.Status,
		reservation.Resolution,
		reservation.ResolvedAt,
		reservation.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update reservation status",
			zap.Error(err),
			zap.String("reservation_number", reservation.Number),
			zap.String("status", string(reservation.Status)),
		)
		return fmt.Errorf("update reservation %s status to %s: %w", reservation.Number, reservation.Status, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update reservation %s from %s: %w", reservation.Number, from, ErrStaleReservation)
	}

	return nil
}

func (r *reservationRepository) collect(rows pgx.Rows) ([]*entity.Reservation, error) {
	defer rows.Close()

	var reservations []*entity.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			r.log.Error("Failed to scan reservation row", zap.Error(err))
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}

	return reservations, nil
}

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var reservation entity.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.Number,
		&reservation.MemberID,
		&reservation.RestaurantID,
		&reservation.RequestedHour,
		&reservation.Status,
		&reservation.Resolution,
		&reservation.ResolvedAt,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
		&reservation.MemberUserID,
		&reservation.RestaurantName,
	)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}
