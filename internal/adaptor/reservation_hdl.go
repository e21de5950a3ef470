package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"restaurant-reservation/internal/dto/request"
	"restaurant-reservation/internal/usecase"
	"restaurant-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	service usecase.ReservationService
	log     *zap.Logger
}

func NewReservationHandler(service usecase.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log.With(zap.String("handler", "reservation")),
	}
}

// CreateReservation handles POST /api/reservations (member)
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	memberID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), memberID, &req)
	if err != nil {
		h.handleServiceError(w, err, "create reservation")
		return
	}

	utils.ResponseCreated(w, "Reservation created", reservation)
}

// GetMyReservations handles GET /api/reservations (member)
func (h *ReservationHandler) GetMyReservations(w http.ResponseWriter, r *http.Request) {
	memberID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reservations, err := h.service.GetMemberReservations(r.Context(), memberID, paginationFrom(r))
	if err != nil {
		h.handleServiceError(w, err, "get member reservations")
		return
	}

	utils.ResponseSuccess(w, "success", reservations)
}

// GetReservation handles GET /api/reservations/{number} (member or manager)
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	actorID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	number, ok := h.reservationNumber(w, r)
	if !ok {
		return
	}

	reservation, err := h.service.CheckReservation(r.Context(), actorID, number)
	if err != nil {
		h.handleServiceError(w, err, "check reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// CancelReservation handles PUT /api/reservations/{number}/cancel (member)
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	memberID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	number, ok := h.reservationNumber(w, r)
	if !ok {
		return
	}

	var req request.CancelReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	reservation, err := h.service.CancelReservation(r.Context(), memberID, number, &req)
	if err != nil {
		h.handleServiceError(w, err, "cancel reservation")
		return
	}

	utils.ResponseSuccess(w, "Reservation canceled", reservation)
}

// VisitReservation handles PUT /api/reservations/{number}/visit (member)
func (h *ReservationHandler) VisitReservation(w http.ResponseWriter, r *http.Request) {
	memberID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	number, ok := h.reservationNumber(w, r)
	if !ok {
		return
	}

	var req request.VisitReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	reservation, err := h.service.VisitReservation(r.Context(), memberID, number, &req)
	if err != nil {
		h.handleServiceError(w, err, "visit reservation")
		return
	}

	utils.ResponseSuccess(w, "Visit confirmed", reservation)
}

// AcceptReservation handles PUT /api/reservations/{number}/accept (manager)
func (h *ReservationHandler) AcceptReservation(w http.ResponseWriter, r *http.Request) {
	managerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	number, ok := h.reservationNumber(w, r)
	if !ok {
		return
	}

	reservation, err := h.service.AcceptReservation(r.Context(), managerID, number)
	if err != nil {
		h.handleServiceError(w, err, "accept reservation")
		return
	}

	utils.ResponseSuccess(w, "Reservation accepted", reservation)
}

// DenyReservation handles PUT /api/reservations/{number}/deny (manager)
func (h *ReservationHandler) DenyReservation(w http.ResponseWriter, r *http.Request) {
	managerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	number, ok := h.reservationNumber(w, r)
	if !ok {
		return
	}

	var req request.DenyReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	reservation, err := h.service.DenyReservation(r.Context(), managerID, number, &req)
	if err != nil {
		h.handleServiceError(w, err, "deny reservation")
		return
	}

	utils.ResponseSuccess(w, "Reservation denied", reservation)
}

// GetRestaurantReservations handles GET /api/restaurants/{name}/reservations (manager)
func (h *ReservationHandler) GetRestaurantReservations(w http.ResponseWriter, r *http.Request) {
	managerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	name := chi.URLParam(r, "name")
	if name == "" {
		utils.ResponseBadRequest(w, "Restaurant name is required", nil)
		return
	}

	reservations, err := h.service.GetManagerReservations(r.Context(), managerID, name, paginationFrom(r))
	if err != nil {
		h.handleServiceError(w, err, "get restaurant reservations")
		return
	}

	utils.ResponseSuccess(w, "success", reservations)
}

// decode reads a JSON body, answering 400 when it is malformed.
// Field validation happens in the service.
func (h *ReservationHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func (h *ReservationHandler) reservationNumber(w http.ResponseWriter, r *http.Request) (string, bool) {
	number := chi.URLParam(r, "number")
	if !utils.IsReservationNumber(number) {
		utils.ResponseError(w, http.StatusNotFound, usecase.ErrNotFoundReservation.Code, usecase.ErrNotFoundReservation.Message)
		return "", false
	}
	return number, true
}

func paginationFrom(r *http.Request) *request.PaginatedRequest {
	query := r.URL.Query()
	return &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}
}

// handleServiceError maps business errors to their HTTP status; anything
// else is an internal failure.
func (h *ReservationHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var rerr *usecase.ReservationError
	if !errors.As(err, &rerr) {
		h.log.Error(operation+" failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	h.log.Warn(operation+" rejected",
		zap.String("code", rerr.Code),
		zap.String("kind", rerr.Kind.String()),
		zap.String("operation", operation))
	utils.ResponseError(w, statusFor(rerr.Kind), rerr.Code, rerr.Message)
}

func statusFor(kind usecase.ErrorKind) int {
	switch kind {
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindTiming:
		return http.StatusUnprocessableEntity
	case usecase.KindConflict:
		return http.StatusConflict
	}
	return http.StatusBadRequest
}
