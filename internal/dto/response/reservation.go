package response

import (
	"time"

	"restaurant-reservation/internal/data/entity"
)

const (
	MessagePending  = "awaiting approval"
	MessageAccepted = "approved — arrive 10 minutes before your slot to check in"
	MessageVisited  = "visit confirmed — you may now write a review"
)

type ReservationResponse struct {
	ReservationNumber string                   `json:"reservation_number"`
	MemberID          string                   `json:"member_id"`
	RestaurantName    string                   `json:"restaurant_name"`
	ReservationTime   string                   `json:"reservation_time"`
	Status            entity.ReservationStatus `json:"status"`
	DetailMessage     string                   `json:"detail_message"`
	Resolution        string                   `json:"resolution,omitempty"`
	ResolvedAt        *time.Time               `json:"resolved_at,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
}

type ManagerReservationResponse struct {
	ReservationNumber string                   `json:"reservation_number"`
	MemberID          string                   `json:"member_id"`
	RestaurantName    string                   `json:"restaurant_name"`
	ReservationTime   string                   `json:"reservation_time"`
	Status            entity.ReservationStatus `json:"status"`
	CreatedAt         time.Time                `json:"created_at"`
}

// DetailMessage is the caller-facing explanation of a status.
func DetailMessage(status entity.ReservationStatus, resolution string) string {
	switch status {
	case entity.ReservationStatusPending:
		return MessagePending
	case entity.ReservationStatusAccepted:
		return MessageAccepted
	case entity.ReservationStatusDenied, entity.ReservationStatusCanceled:
		return resolution
	case entity.ReservationStatusVisited:
		return MessageVisited
	case entity.ReservationStatusExpired:
		return entity.AutoExpireMessage
	}
	return ""
}

// ReservationToResponse renders r as seen with the given effective status,
// which may be expired even though the stored row is still active.
func ReservationToResponse(r *entity.Reservation, status entity.ReservationStatus) ReservationResponse {
	resolution := ""
	if r.Resolution != nil {
		resolution = *r.Resolution
	}
	if status == entity.ReservationStatusExpired {
		resolution = entity.AutoExpireMessage
	}

	return ReservationResponse{
		ReservationNumber: r.Number,
		MemberID:          r.MemberUserID,
		RestaurantName:    r.RestaurantName,
		ReservationTime:   r.RequestedHour + ":00",
		Status:            status,
		DetailMessage:     DetailMessage(status, resolution),
		Resolution:        resolution,
		ResolvedAt:        r.ResolvedAt,
		CreatedAt:         r.CreatedAt,
	}
}

func ReservationToManagerResponse(r *entity.Reservation, status entity.ReservationStatus) ManagerReservationResponse {
	return ManagerReservationResponse{
		ReservationNumber: r.Number,
		MemberID:          r.MemberUserID,
		RestaurantName:    r.RestaurantName,
		ReservationTime:   r.RequestedHour + ":00",
		Status:            status,
		CreatedAt:         r.CreatedAt,
	}
}
