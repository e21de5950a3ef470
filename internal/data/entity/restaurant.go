package entity

import "github.com/google/uuid"

type Restaurant struct {
	Base
	ManagerID uuid.UUID `db:"manager_id"`
	Name      string    `db:"name"`
	OpenHour  *string   `db:"open_hour"`  // nil means open all day
	CloseHour *string   `db:"close_hour"`
}

// Hours returns the open and close hour, empty for an all-day restaurant.
func (r *Restaurant) Hours() (string, string) {
	if r.OpenHour == nil || r.CloseHour == nil {
		return "", ""
	}
	return *r.OpenHour, *r.CloseHour
}
