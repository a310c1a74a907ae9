// Package lock keeps two runs of the sync job from overlapping.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobsync/internal/model"
)

// DefaultKey is the Redis key holding the run lock.
const DefaultKey = "jobsync:run-lock"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another run is never released by us.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Locker guards a run. Release must be called once Acquire succeeds.
type Locker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}

// redisClient is the subset of *redis.Client the lock needs.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLock is a single-key lock with a TTL so a crashed run cannot hold it
// forever.
type RedisLock struct {
	client redisClient
	key    string
	ttl    time.Duration
}

// NewRedisLock returns a lock stored at key. ttl should exceed the longest
// expected run.
func NewRedisLock(client redisClient, key string, ttl time.Duration) *RedisLock {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock or returns model.ErrLocked if another run holds it.
func (l *RedisLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquiring lock %s: %w", l.key, model.ErrLocked)
	}

	release := func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("releasing lock %s: %w", l.key, err)
		}
		return nil
	}
	return release, nil
}

// NopLock always succeeds. It is used when no Redis URL is configured.
type NopLock struct{}

func (NopLock) Acquire(context.Context) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// NewRedisClient parses redisURL. It does not connect: an unreachable Redis
// makes Acquire fail, which ends that run only.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	return redis.NewClient(opts), nil
}
