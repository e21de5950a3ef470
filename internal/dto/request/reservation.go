package request

type CreateReservationRequest struct {
	RestaurantName string `json:"restaurant_name" validate:"required,max=100"`
	Time           string `json:"time" validate:"required,len=2,numeric"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type DenyReservationRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type VisitReservationRequest struct {
	RestaurantName string `json:"restaurant_name" validate:"required,max=100"`
}
