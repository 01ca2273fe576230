// Package queue is the durable-queue handoff: each event is stored as a
// uniquely keyed value with a TTL, and the key is appended to a named
// redis list that consumers pop from.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"perpx/config"
)

const (
	msgKeyPrefix   = "perpx:msg:"
	queueKeyPrefix = "perpx:queue:"
)

// Connect builds the redis client from config and verifies connectivity
// with a ping. A failed ping is fatal at startup.
func Connect(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username:     cfg.User,
		Password:     cfg.Password,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return client, nil
}

// RedisQueue pushes uniquely keyed messages onto named lists. Safe for
// concurrent use by every detector goroutine.
type RedisQueue struct {
	client     redis.Cmdable
	defaultTTL time.Duration
}

func New(client redis.Cmdable, defaultTTL time.Duration) *RedisQueue {
	return &RedisQueue{client: client, defaultTTL: defaultTTL}
}

// Push stores message under a fresh perpx:msg:<uuid> key with a TTL and
// right-pushes the key onto perpx:queue:<queueName>. ttl <= 0 selects
// the default. The two round-trips are not atomic: a consumer that pops
// a key whose value has expired treats the message as dropped.
func (q *RedisQueue) Push(ctx context.Context, queueName, message string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = q.defaultTTL
	}
	key := msgKeyPrefix + uuid.NewString()

	if err := q.client.Set(ctx, key, message, ttl).Err(); err != nil {
		return fmt.Errorf("store message %s: %w", key, err)
	}
	if err := q.client.RPush(ctx, queueKeyPrefix+queueName, key).Err(); err != nil {
		return fmt.Errorf("enqueue %s onto %s: %w", key, queueName, err)
	}
	return nil
}
