package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restaurant-reservation/internal/data/entity"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const reservationCachePrefix = "reservation:"

// ReservationCache keeps reservation snapshots keyed by number.
type ReservationCache interface {
	Get(ctx context.Context, number string) (*entity.Reservation, error)
	Set(ctx context.Context, reservation *entity.Reservation) error
	Delete(ctx context.Context, number string) error
}

type redisReservationCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewReservationCache falls back to a no-op cache when client is nil.
func NewReservationCache(client *redis.Client, ttl time.Duration, log *zap.Logger) ReservationCache {
	if client == nil {
		return NoopReservationCache{}
	}
	return &redisReservationCache{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("repository", "reservation_cache")),
	}
}

func (c *redisReservationCache) Get(ctx context.Context, number string) (*entity.Reservation, error) {
	raw, err := c.client.Get(ctx, reservationCachePrefix+number).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		c.log.Warn("Failed to read cached reservation",
			zap.Error(err),
			zap.String("reservation_number", number),
		)
		return nil, fmt.Errorf("get cached reservation %s: %w", number, err)
	}

	var reservation entity.Reservation
	if err := json.Unmarshal(raw, &reservation); err != nil {
		return nil, fmt.Errorf("decode cached reservation %s: %w", number, err)
	}
	return &reservation, nil
}

func (c *redisReservationCache) Set(ctx context.Context, reservation *entity.Reservation) error {
	raw, err := json.Marshal(reservation)
	if err != nil {
		return fmt.Errorf("encode reservation %s: %w", reservation.Number, err)
	}

	if err := c.client.Set(ctx, reservationCachePrefix+reservation.Number, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to cache reservation",
			zap.Error(err),
			zap.String("reservation_number", reservation.Number),
		)
		return fmt.Errorf("cache reservation %s: %w", reservation.Number, err)
	}
	return nil
}

func (c *redisReservationCache) Delete(ctx context.Context, number string) error {
	if err := c.client.Del(ctx, reservationCachePrefix+number).Err(); err != nil {
		c.log.Warn("Failed to evict cached reservation",
			zap.Error(err),
			zap.String("reservation_number", number),
		)
		return fmt.Errorf("evict cached reservation %s: %w", number, err)
	}
	return nil
}

// NoopReservationCache never holds anything.
type NoopReservationCache struct{}

func (NoopReservationCache) Get(context.Context, string) (*entity.Reservation, error) { return nil, nil }
func (NoopReservationCache) Set(context.Context, *entity.Reservation) error         { return nil }
func (NoopReservationCache) Delete(context.Context, string) error                   { return nil }
