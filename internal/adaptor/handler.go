package adaptor

import (
	"restaurant-reservation/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Reservation *ReservationHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Reservation: NewReservationHandler(service.Reservation, log),
	}
}
