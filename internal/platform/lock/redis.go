package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisLocker coordinates locks across processes through Redis.
type RedisLocker struct {
	client *redislock.Client
	prefix string
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, addr string, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisLocker wraps a Redis client.
func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), prefix: "lock:"}
}

var _ Locker = (*RedisLocker)(nil)

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	held, err := l.client.Obtain(ctx, l.prefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrLockHeld, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return held, nil
}
