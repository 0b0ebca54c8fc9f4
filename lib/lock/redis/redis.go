// Package redis implements a lock shared by every process connected to the same Redis server.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tarancss/rpay/lib/lock"
)

// Prefix is prepended to every lock key.
const Prefix = "rpay:lock:"

// release deletes the key only if it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a Locker backed by SET NX PX.
type Redis struct {
	c *redis.Client
}

// New connects to the Redis server at addr.
func New(ctx context.Context, addr string) (*Redis, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()

		return nil, fmt.Errorf("lock/redis: ping: %w", err)
	}

	return &Redis{c: c}, nil
}

// Close closes the client connection.
func (r *Redis) Close() error {
	return r.c.Close()
}

// Acquire leases key for ttl.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, bool, error) {
	token := uuid.NewString()

	ok, err := r.c.SetNX(ctx, Prefix+key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock/redis: acquire %s: %w", key, err)
	}

	if !ok {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		n, err := release.Run(ctx, r.c, []string{Prefix + key}, token).Int()
		if err != nil {
			return fmt.Errorf("lock/redis: release %s: %w", key, err)
		}

		if n == 0 {
			return lock.ErrNotHeld
		}

		return nil
	}, true, nil
}

// Compile-time check: ensure Redis implements lock.Locker.
var _ lock.Locker = (*Redis)(nil)
