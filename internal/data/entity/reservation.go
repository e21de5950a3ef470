package entity

import (
	"errors"
	"fmt"
	"time"

	"restaurant-reservation/pkg/clock"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusPending  ReservationStatus = "pending"
	ReservationStatusAccepted ReservationStatus = "accepted"
	ReservationStatusDenied   ReservationStatus = "denied"
	ReservationStatusCanceled ReservationStatus = "canceled"
	ReservationStatusVisited  ReservationStatus = "visited"
	ReservationStatusExpired  ReservationStatus = "expired"
)

// AutoExpireMessage is recorded as the resolution of a lapsed reservation.
const AutoExpireMessage = "reservation lapsed — automatically canceled"

var ErrIllegalTransition = errors.New("illegal reservation status transition")

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending: {
		ReservationStatusAccepted,
		ReservationStatusDenied,
		ReservationStatusCanceled,
		ReservationStatusExpired,
	},
	ReservationStatusAccepted: {
		ReservationStatusCanceled,
		ReservationStatusVisited,
		ReservationStatusExpired,
	},
}

// IsActive reports whether the reservation still holds its slot.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationStatusPending || s == ReservationStatusAccepted
}

func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationStatusDenied, ReservationStatusCanceled, ReservationStatusVisited, ReservationStatusExpired:
		return true
	}
	return false
}

func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Reservation struct {
	Base
	Number        string            `db:"number"`
	MemberID      uuid.UUID         `db:"member_id"`
	RestaurantID  uuid.UUID         `db:"restaurant_id"`
	RequestedHour string            `db:"requested_hour"`
	Status        ReservationStatus `db:"status"`
	Resolution    *string           `db:"resolution"`
	ResolvedAt    *time.Time        `db:"resolved_at"`

	// joined for presentation
	MemberUserID   string `db:"member_user_id"`
	RestaurantName string `db:"restaurant_name"`
}

// Transition moves the reservation to next. ResolvedAt is stamped only on the
// first move out of pending.
func (r *Reservation) Transition(next ReservationStatus, resolution *string, at time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.Status, next)
	}

	r.Status = next
	if resolution != nil {
		r.Resolution = resolution
	}
	if r.ResolvedAt == nil {
		resolvedAt := at
		r.ResolvedAt = &resolvedAt
	}
	r.UpdatedAt = at
	return nil
}

// SlotTime is the instant the diner is expected, in loc.
func (r *Reservation) SlotTime(loc *time.Location) (time.Time, error) {
	return clock.SlotTime(r.CreatedAt, r.RequestedHour, loc)
}

// Lapsed reports whether an active reservation passed its check-in deadline.
func (r *Reservation) Lapsed(now time.Time, loc *time.Location, grace time.Duration) bool {
	if !r.Status.IsActive() {
		return false
	}
	slot, err := r.SlotTime(loc)
	if err != nil {
		return false
	}
	return clock.Lapsed(slot, now, grace)
}

// EffectiveStatus is the status a caller should see at now.
func (r *Reservation) EffectiveStatus(now time.Time, loc *time.Location, grace time.Duration) ReservationStatus {
	if r.Lapsed(now, loc, grace) {
		return ReservationStatusExpired
	}
	return r.Status
}
