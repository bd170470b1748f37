package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRunLock implements the dispatcher run lock with SET NX so a reminder
// pass happens at most once per day across instances.
type RedisRunLock struct {
	client *redis.Client
}

// NewRedisRunLock wraps a redis client as a run locker.
func NewRedisRunLock(client *redis.Client) *RedisRunLock {
	return &RedisRunLock{client: client}
}

// Acquire claims key for ttl. Returns false when another holder owns it.
func (l *RedisRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}
