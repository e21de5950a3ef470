package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

const (
	minReservationNumber = 10000000
	maxReservationNumber = 99999999
)

// NumberProbe reports whether an active reservation already holds number.
type NumberProbe func(ctx context.Context, number string) (bool, error)

// NumberAllocator hands out sequential 8-digit reservation numbers, wrapping
// back to 10000000 after 99999999 and skipping numbers still held by active
// reservations. The counter and the probe run under one lock.
type NumberAllocator struct {
	mu          sync.Mutex
	counter     int
	maxAttempts int
	taken       NumberProbe
}

func NewNumberAllocator(taken NumberProbe, maxAttempts int) *NumberAllocator {
	if maxAttempts < 1 {
		maxAttempts = 1000
	}
	return &NumberAllocator{
		counter:     minReservationNumber,
		maxAttempts: maxAttempts,
		taken:       taken,
	}
}

// Seed continues the sequence after number. Malformed input is ignored.
func (a *NumberAllocator) Seed(number string) {
	n, err := strconv.Atoi(number)
	if err != nil || n < minReservationNumber || n > maxReservationNumber {
		return
	}

	a.mu.Lock()
	a.counter = n
	a.mu.Unlock()
}

func (a *NumberAllocator) Allocate(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		a.counter++
		if a.counter > maxReservationNumber {
			a.counter = minReservationNumber
		}

		number := fmt.Sprintf("%08d", a.counter)
		taken, err := a.taken(ctx, number)
		if err != nil {
			return "", fmt.Errorf("probe reservation number %s: %w", number, err)
		}
		if !taken {
			return number, nil
		}
	}

	return "", ErrNumberExhausted
}
