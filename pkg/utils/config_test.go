package utils

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigTimezone(t *testing.T) {
	t.Setenv("RESERVATION_TIMEZONE", "UTC")

	config, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if loc := config.Reservation.Location(); loc != time.UTC {
		t.Fatalf("location = %v, want UTC", loc)
	}
	if config.Reservation.CutoffHour != 20 || config.Reservation.CheckInGrace != 10*time.Minute {
		t.Fatalf("unexpected reservation defaults: %+v", config.Reservation)
	}
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("RESERVATION_TIMEZONE", "Mars/Olympus_Mons")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if !strings.Contains(err.Error(), "RESERVATION_TIMEZONE") {
		t.Fatalf("error %q does not name the setting", err)
	}
}
