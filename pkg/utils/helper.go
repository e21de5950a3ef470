package utils

import (
	"strconv"
	"strings"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// IsReservationNumber reports whether s is an 8-digit reservation number.
func IsReservationNumber(s string) bool {
	if len(s) != 8 {
		return false
	}
	return strings.Trim(s, "0123456789") == ""
}
