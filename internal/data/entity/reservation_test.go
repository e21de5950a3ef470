package entity

import (
	"errors"
	"testing"
	"time"
)

var allStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusAccepted,
	ReservationStatusDenied,
	ReservationStatusCanceled,
	ReservationStatusVisited,
	ReservationStatusExpired,
}

func TestTransitionTable(t *testing.T) {
	allowed := map[ReservationStatus]map[ReservationStatus]bool{
		ReservationStatusPending: {
			ReservationStatusAccepted: true,
			ReservationStatusDenied:   true,
			ReservationStatusCanceled: true,
			ReservationStatusExpired:  true,
		},
		ReservationStatusAccepted: {
			ReservationStatusCanceled: true,
			ReservationStatusVisited:  true,
			ReservationStatusExpired:  true,
		},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if got, want := from.CanTransitionTo(to), allowed[from][to]; got != want {
				t.Errorf("%s -> %s allowed = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatusesRejectEveryTransition(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	for _, from := range allStatuses {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range allStatuses {
			r := &Reservation{Status: from}
			if err := r.Transition(to, nil, now); !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("%s -> %s: expected ErrIllegalTransition, got %v", from, to, err)
			}
			if r.Status != from {
				t.Errorf("%s -> %s changed status to %s", from, to, r.Status)
			}
		}
	}
}

func TestTransitionStampsResolvedAtOnce(t *testing.T) {
	accepted := time.Date(2024, time.March, 15, 11, 0, 0, 0, time.UTC)
	visited := accepted.Add(7 * time.Hour)

	r := &Reservation{Status: ReservationStatusPending}
	if err := r.Transition(ReservationStatusAccepted, nil, accepted); err != nil {
		t.Fatal(err)
	}
	if r.ResolvedAt == nil || !r.ResolvedAt.Equal(accepted) {
		t.Fatalf("ResolvedAt = %v, want %v", r.ResolvedAt, accepted)
	}

	if err := r.Transition(ReservationStatusVisited, nil, visited); err != nil {
		t.Fatal(err)
	}
	if !r.ResolvedAt.Equal(accepted) {
		t.Fatalf("ResolvedAt moved to %v", r.ResolvedAt)
	}
	if !r.UpdatedAt.Equal(visited) {
		t.Fatalf("UpdatedAt = %v, want %v", r.UpdatedAt, visited)
	}
}

func TestEffectiveStatus(t *testing.T) {
	created := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	grace := 10 * time.Minute

	r := &Reservation{
		Base:          Base{CreatedAt: created},
		RequestedHour: "19",
		Status:        ReservationStatusAccepted,
	}

	if got := r.EffectiveStatus(created.Add(8*time.Hour+50*time.Minute), time.UTC, grace); got != ReservationStatusAccepted {
		t.Fatalf("at deadline got %s", got)
	}
	if got := r.EffectiveStatus(created.Add(8*time.Hour+51*time.Minute), time.UTC, grace); got != ReservationStatusExpired {
		t.Fatalf("past deadline got %s", got)
	}

	r.Status = ReservationStatusVisited
	if got := r.EffectiveStatus(created.Add(12*time.Hour), time.UTC, grace); got != ReservationStatusVisited {
		t.Fatalf("visited reservation reported %s", got)
	}
}
