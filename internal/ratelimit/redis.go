package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pinky:ratelimit:"

// RedisStore shares counters across instances via INCR + EXPIRE. The expiry
// is set on the first increment of a window, so the window is fixed from the
// first request.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisStore{client: client, timeout: 250 * time.Millisecond}, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	redisKey := redisKeyPrefix + key
	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return int(count), window, err
		}
	}
	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return int(count), ttl, nil
}

func (s *RedisStore) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}
