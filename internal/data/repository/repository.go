package repository

import (
	"context"
	"errors"
	"fmt"

	"restaurant-reservation/pkg/database"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateActive means the member already holds an active reservation at the restaurant.
	ErrDuplicateActive = errors.New("active reservation already exists for member and restaurant")
	// ErrDuplicateNumber means the reservation number is held by another active reservation.
	ErrDuplicateNumber = errors.New("reservation number already in use")
	// ErrStaleReservation means a concurrent writer changed the reservation first.
	ErrStaleReservation = errors.New("reservation was modified concurrently")
)

const uniqueViolation = "23505"

type Repository struct {
	Member      MemberRepository
	Restaurant  RestaurantRepository
	Reservation ReservationRepository
	Cache       ReservationCache
	Tx          Transactor
}

func NewRepository(db database.PgxIface, cache ReservationCache, log *zap.Logger) *Repository {
	if cache == nil {
		cache = NoopReservationCache{}
	}
	repo := newQueryRepository(db, log)
	repo.Cache = cache
	repo.Tx = &pgTransactor{db: db, log: log.With(zap.String("repository", "tx"))}
	return repo
}

func newQueryRepository(db database.DBTX, log *zap.Logger) *Repository {
	return &Repository{
		Member:      NewMemberRepository(db, log),
		Restaurant:  NewRestaurantRepository(db, log),
		Reservation: NewReservationRepository(db, log),
		Cache:       NoopReservationCache{},
	}
}

// Transactor runs fn against repositories bound to a single transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx *Repository) error) error
}

type pgTransactor struct {
	db  database.PgxIface
	log *zap.Logger
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *Repository) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		t.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newQueryRepository(tx, t.log)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		t.log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
