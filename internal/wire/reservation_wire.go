package wire

import (
	"restaurant-reservation/internal/adaptor"
	"restaurant-reservation/internal/data/entity"
	"restaurant-reservation/pkg/middleware"
	"restaurant-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReservation(
	r chi.Router,
	reservationHandler *adaptor.ReservationHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	member := string(entity.RoleMember)
	manager := string(entity.RoleManager)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(config.JWT.Secret, log))

		// ==================== MEMBER ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(log, member))

			// POST /api/reservations - book a same-day slot
			r.Post("/api/reservations", reservationHandler.CreateReservation)

			// GET /api/reservations - own reservation history, newest first
			r.Get("/api/reservations", reservationHandler.GetMyReservations)

			r.Put("/api/reservations/{number}/cancel", reservationHandler.CancelReservation)
			r.Put("/api/reservations/{number}/visit", reservationHandler.VisitReservation)
		})

		// ==================== MANAGER ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(log, manager))

			r.Put("/api/reservations/{number}/accept", reservationHandler.AcceptReservation)
			r.Put("/api/reservations/{number}/deny", reservationHandler.DenyReservation)

			// GET /api/restaurants/{name}/reservations - active bookings, oldest first
			r.Get("/api/restaurants/{name}/reservations", reservationHandler.GetRestaurantReservations)
		})

		// GET /api/reservations/{number} - the reservation's member or the restaurant's manager
		r.With(middleware.RequireRole(log, member, manager)).
			Get("/api/reservations/{number}", reservationHandler.GetReservation)
	})
}
