// Package memory implements the store interface in memory. Nothing survives the process but it keeps the same
// semantics as the database implementations, so it is used by default and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tarancss/rpay/lib/store"
)

// Memory is a thread-safe in-memory store.
type Memory struct {
	mu        sync.Mutex
	accounts  map[string]store.Account
	payments  map[string]store.Payment
	recurring map[string]store.Recurring
	attempts  map[string]store.Attempt
}

// New returns an empty Memory store.
func New() *Memory {
	return &Memory{
		accounts:  make(map[string]store.Account),
		payments:  make(map[string]store.Payment),
		recurring: make(map[string]store.Recurring),
		attempts:  make(map[string]store.Attempt),
	}
}

// SaveAccount inserts or replaces an account.
func (m *Memory) SaveAccount(_ context.Context, a store.Account) error {
	if a.ID == "" {
		return store.ErrNoID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[a.ID] = a

	return nil
}

// SavePayment inserts or replaces a payment.
func (m *Memory) SavePayment(_ context.Context, p store.Payment) error {
	if p.ID == "" {
		return store.ErrNoID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.payments[p.ID] = p

	return nil
}

// SaveRecurring inserts or replaces a recurring payment.
func (m *Memory) SaveRecurring(_ context.Context, r store.Recurring) error {
	if r.ID == "" {
		return store.ErrNoID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.recurring[r.ID] = r

	return nil
}

// SaveAttempt inserts or replaces an attempt.
func (m *Memory) SaveAttempt(_ context.Context, a store.Attempt) error {
	if a.ID == "" {
		return store.ErrNoID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts[a.ID] = a

	return nil
}

// Attempts returns the attempts in state, oldest first.
func (m *Memory) Attempts(_ context.Context, state string) ([]store.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := make([]store.Attempt, 0, len(m.attempts))

	for _, a := range m.attempts {
		if state == "" || a.State == state {
			r = append(r, a)
		}
	}

	sort.Slice(r, func(i, j int) bool { return r[i].CreatedAt.Before(r[j].CreatedAt) })

	return r, nil
}

// Load returns a copy of everything saved.
func (m *Memory) Load(ctx context.Context) (s store.Snapshot, err error) {
	m.mu.Lock()

	for _, a := range m.accounts {
		s.Accounts = append(s.Accounts, a)
	}

	for _, p := range m.payments {
		s.Payments = append(s.Payments, p)
	}

	for _, r := range m.recurring {
		s.Recurring = append(s.Recurring, r)
	}

	m.mu.Unlock()

	sort.Slice(s.Accounts, func(i, j int) bool { return s.Accounts[i].ID < s.Accounts[j].ID })
	sort.Slice(s.Payments, func(i, j int) bool { return s.Payments[i].Seq < s.Payments[j].Seq })
	sort.Slice(s.Recurring, func(i, j int) bool { return s.Recurring[i].Seq < s.Recurring[j].Seq })

	s.Attempts, err = m.Attempts(ctx, "")

	return s, err
}

// Close does nothing, data is kept so the store can still be inspected in tests.
func (m *Memory) Close() error {
	return nil
}

// Compile-time check: ensure Memory implements store.DB.
var _ store.DB = (*Memory)(nil)
