// Package lock defines a lease lock shared by every instance of the service, so that only one of them sweeps the
// recurring payments at a time.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotHeld is returned when releasing a lock that expired or is owned by someone else.
	ErrNotHeld = errors.New("lock not held")
)

// Release gives the lock back.
type Release func(ctx context.Context) error

// Locker acquires leases on keys. Acquire does not wait: ok is false if the key is already leased. A lease expires
// after ttl even if never released.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release Release, ok bool, err error)
}
