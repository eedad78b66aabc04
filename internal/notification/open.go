package notification

import (
	"context"
	"fmt"
	"time"

	"go-billing-api/pkg/config"

	"github.com/redis/go-redis/v9"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// OpenQueue builds the queue named by cfg.Driver. The returned close func
// releases the Redis connection pool and is a no-op for the memory driver.
func OpenQueue(ctx context.Context, cfg config.QueueConfig) (Queue, func() error, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewChannelQueue(cfg.Buffer), func() error { return nil }, nil

	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddress, err)
		}
		return NewRedisQueue(client, cfg.Key), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
