package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const lockKey = "lock:synclet:sync"

// Lock serializes sync runs across hosts through a Redis SETNX lease. The
// TTL bounds how long a crashed run can wedge the lock.
type Lock struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis and verifies the connection before handing the lock
// out. A lock that cannot reach Redis is worse than no lock.
func New(addr, password string, db int, ttl time.Duration) (*Lock, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Lock{rdb: rdb, ttl: ttl}, nil
}

// Acquire takes the lease. False means another run holds it.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	return l.rdb.SetNX(ctx, lockKey, "1", l.ttl).Result()
}

// Release drops the lease.
func (l *Lock) Release(ctx context.Context) error {
	return l.rdb.Del(ctx, lockKey).Err()
}

// Close closes the Redis connection
func (l *Lock) Close() error {
	return l.rdb.Close()
}
