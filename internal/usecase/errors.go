package usecase

// ErrorKind groups business errors by how a caller should react.
type ErrorKind int

const (
	KindInvalid ErrorKind = iota
	KindNotFound
	KindForbidden
	KindTiming
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindTiming:
		return "timing"
	case KindConflict:
		return "conflict"
	}
	return "invalid"
}

// ReservationError is a recoverable business rejection with a machine-readable code.
type ReservationError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *ReservationError) Error() string { return e.Message }

// Is matches any ReservationError carrying the same code.
func (e *ReservationError) Is(target error) bool {
	t, ok := target.(*ReservationError)
	return ok && t.Code == e.Code
}

func newReservationError(kind ErrorKind, code, message string) *ReservationError {
	return &ReservationError{Kind: kind, Code: code, Message: message}
}

var (
	ErrNotFoundMember      = newReservationError(KindNotFound, "NOT_FOUND_MEMBER", "member not found")
	ErrNotFoundRestaurant  = newReservationError(KindNotFound, "NOT_FOUND_RESTAURANT", "restaurant not found")
	ErrNotFoundReservation = newReservationError(KindNotFound, "NOT_FOUND_RESERVATION", "reservation not found")

	ErrDiffReservationMember     = newReservationError(KindForbidden, "DIFF_RESERVATION_MEMBER", "reservation belongs to a different member")
	ErrDiffReservationManager    = newReservationError(KindForbidden, "DIFF_RESERVATION_MANAGER", "caller is not the manager of the reserved restaurant")
	ErrDiffReservationRestaurant = newReservationError(KindConflict, "DIFF_RESERVATION_RESTAURANT", "reservation was made at a different restaurant")

	ErrImpossibleReservation = newReservationError(KindTiming, "IMPOSSIBLE_RESERVATION", "the requested hour cannot be reserved")
	ErrImpossibleCancel      = newReservationError(KindTiming, "IMPOSSIBLE_CANCEL", "reservations can only be canceled up to one hour before the slot")
	ErrAutoCancel            = newReservationError(KindTiming, "AUTO_CANCEL", "reservation lapsed and was canceled automatically")

	ErrAlreadyExistReservation        = newReservationError(KindConflict, "ALREADY_EXIST_RESERVATION", "an active reservation already exists at this restaurant")
	ErrImpossibleReservationForDenied = newReservationError(KindConflict, "IMPOSSIBLE_RESERVATION_FOR_DENIED", "a reservation for this hour was already denied")
	ErrImpossibleVisit                = newReservationError(KindConflict, "IMPOSSIBLE_VISIT", "only accepted reservations can be visited")
	ErrAlreadyAcceptedReservation     = newReservationError(KindConflict, "ALREADY_ACCEPTED_RESERVATION", "reservation was already accepted")
	ErrAlreadyDeniedReservation       = newReservationError(KindConflict, "ALREADY_DENIED_RESERVATION", "reservation was already denied")
	ErrAlreadyCanceledReservation     = newReservationError(KindConflict, "ALREADY_CANCELED_RESERVATION", "reservation was already canceled")
	ErrAlreadyUsedReservation         = newReservationError(KindConflict, "ALREADY_USED_RESERVATION", "reservation was already used")
	ErrReservationConflict            = newReservationError(KindConflict, "RESERVATION_CONFLICT", "reservation was changed by another request")
	ErrNumberExhausted                = newReservationError(KindConflict, "RESERVATION_NUMBER_EXHAUSTED", "no reservation number is available")

	ErrInvalidHour = newReservationError(KindInvalid, "INVALID_HOUR", "reservation time must be a two-digit hour between 00 and 23")
)

func validationError(details string) *ReservationError {
	return newReservationError(KindInvalid, "VALIDATION_FAILED", "validation failed: "+details)
}
