// Package memory implements a lock that is only shared within the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tarancss/rpay/lib/lock"
)

type lease struct {
	token   string
	expires time.Time
}

// Memory is an in-process Locker.
type Memory struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// New returns an empty in-process locker.
func New() *Memory {
	return &Memory{leases: make(map[string]lease), now: time.Now}
}

// Acquire leases key for ttl if it is free or its lease expired.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (lock.Release, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.leases[key]; ok && now.Before(l.expires) {
		return nil, false, nil
	}

	token := uuid.NewString()
	m.leases[key] = lease{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		if l, ok := m.leases[key]; !ok || l.token != token {
			return lock.ErrNotHeld
		}

		delete(m.leases, key)

		return nil
	}, true, nil
}

// Compile-time check: ensure Memory implements lock.Locker.
var _ lock.Locker = (*Memory)(nil)
