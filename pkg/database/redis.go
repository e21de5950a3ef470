package database

import (
	"context"
	"time"

	"restaurant-reservation/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to redis, returning nil when no address is
// configured or the server does not answer. Callers run without a cache then.
func NewRedisClient(config utils.RedisConfig) *redis.Client {
	if config.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
