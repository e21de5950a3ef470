// Package clock converts two-digit hour strings into instants and decides
// whether a requested hour falls inside a restaurant's bookable window.
package clock

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidHour   = errors.New("hour must be a two-digit value between 00 and 23")
	ErrInvalidWindow = errors.New("requested hour is outside the bookable window")
)

// Clock is the source of the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in a fixed location.
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Fixed always reports t.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}

// ParseHour parses "00".."23".
func ParseHour(hour string) (int, error) {
	if len(hour) != 2 || hour[0] < '0' || hour[0] > '9' || hour[1] < '0' || hour[1] > '9' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHour, hour)
	}
	h := int(hour[0]-'0')*10 + int(hour[1]-'0')
	if h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHour, hour)
	}
	return h, nil
}

// At returns hour:00 on the calendar day of day, in day's location.
func At(day time.Time, hour int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, day.Location())
}

// TodayAt combines the calendar date of now with hour.
func TodayAt(now time.Time, hour string) (time.Time, error) {
	h, err := ParseHour(hour)
	if err != nil {
		return time.Time{}, err
	}
	return At(now, h), nil
}

// TomorrowAt is TodayAt one calendar day ahead.
func TomorrowAt(now time.Time, hour string) (time.Time, error) {
	h, err := ParseHour(hour)
	if err != nil {
		return time.Time{}, err
	}
	return At(now, h).AddDate(0, 0, 1), nil
}

// OperatingWindow returns the window opened on the day of now. A close hour
// not after the open hour rolls the end over to the next calendar day. A
// restaurant without hours is open for the whole day.
func OperatingWindow(now time.Time, openHour, closeHour string) (time.Time, time.Time, error) {
	if openHour == "" || closeHour == "" {
		start := At(now, 0)
		return start, start.AddDate(0, 0, 1), nil
	}

	open, err := ParseHour(openHour)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	closing, err := ParseHour(closeHour)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := At(now, open)
	if closing > open {
		return start, At(now, closing), nil
	}
	return start, At(now, closing).AddDate(0, 0, 1), nil
}

// CheckBookableWindow validates a same-day requested hour: it must not be
// before now, not after the daily cutoff hour, and inside an operating window.
// For overnight restaurants the window opened the previous day also counts,
// so the small hours after midnight stay bookable. Every bound is inclusive.
func CheckBookableWindow(requestedHour, openHour, closeHour string, now time.Time, cutoffHour int) error {
	requested, err := TodayAt(now, requestedHour)
	if err != nil {
		return err
	}

	cutoff := At(now, cutoffHour)
	if requested.Before(now) || requested.After(cutoff) {
		return ErrInvalidWindow
	}

	start, end, err := OperatingWindow(now, openHour, closeHour)
	if err != nil {
		return err
	}
	if within(requested, start, end) {
		return nil
	}

	if end.Sub(start) > 0 && !sameDay(start, end) {
		prevStart, prevEnd, err := OperatingWindow(now.AddDate(0, 0, -1), openHour, closeHour)
		if err != nil {
			return err
		}
		if within(requested, prevStart, prevEnd) {
			return nil
		}
	}

	return ErrInvalidWindow
}

// IsWithinBookableWindow is CheckBookableWindow reduced to a boolean.
func IsWithinBookableWindow(requestedHour, openHour, closeHour string, now time.Time, cutoffHour int) bool {
	return CheckBookableWindow(requestedHour, openHour, closeHour, now, cutoffHour) == nil
}

// SlotTime is the visit instant of a reservation: its hour on the calendar day
// the reservation was created, in loc.
func SlotTime(createdAt time.Time, hour string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return TodayAt(createdAt.In(loc), hour)
}

// Lapsed reports whether the check-in deadline (slot minus grace) has passed.
func Lapsed(slot, now time.Time, grace time.Duration) bool {
	return now.After(slot.Add(-grace))
}

// CancelLocked reports whether now is inside the lockout before the slot.
// The lockout starts at exactly slot minus lockout.
func CancelLocked(slot, now time.Time, lockout time.Duration) bool {
	return !now.Before(slot.Add(-lockout))
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
