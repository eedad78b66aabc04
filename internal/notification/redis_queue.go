package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue stores invoices in a Redis list: LPUSH to enqueue, BRPOP to
// consume, so the API and cmd/worker can run as separate processes.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, pollTimeout: 5 * time.Second}
}

func (q *RedisQueue) Dispatch(ctx context.Context, invoice Invoice) error {
	payload, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue invoice: %w", err)
	}
	return nil
}

func (q *RedisQueue) Next(ctx context.Context) (Invoice, error) {
	for {
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return Invoice{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Invoice{}, ctx.Err()
			}
			return Invoice{}, fmt.Errorf("dequeue invoice: %w", err)
		}

		// res is [key, value]
		var invoice Invoice
		if err := json.Unmarshal([]byte(res[1]), &invoice); err != nil {
			return Invoice{}, fmt.Errorf("decode invoice: %w", err)
		}
		return invoice, nil
	}
}

// Len reports how many invoices are waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
