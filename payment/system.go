// Package payment implements the bookkeeping core of the payments client: the account ledger, the payment log, the
// recurring payment scheduler and the executor delegating transfers to a network.
//
// All the state is owned by a System, created with New and passed around by the services using it. A System is safe
// for concurrent use.
package payment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tarancss/rpay/lib/block"
	"github.com/tarancss/rpay/lib/keys"
	"github.com/tarancss/rpay/lib/lock"
	"github.com/tarancss/rpay/lib/metrics"
	"github.com/tarancss/rpay/lib/msg"
	"github.com/tarancss/rpay/lib/store"
)

// Options configures a System. The zero value is usable: no persistence, no events, no shared lock, no metrics.
type Options struct {
	Network        string           // name of the network, used in events and logs
	Timeout        time.Duration    // bound of every network call, DefaultTimeout if zero
	AllowOverwrite bool             // re-registering an account resets it instead of failing
	SweepFailFast  bool             // a sweep stops at the first failure
	SweepLease     time.Duration    // time the shared sweep lock is held at most, DefaultSweepLease if zero
	Store          store.DB         // write-through persistence
	Broker         msg.Broker       // event publishing
	Locker         lock.Locker      // lock shared with other instances sweeping the same payments
	Metrics        *metrics.Metrics // collectors
	Now            func() time.Time // clock, time.Now if nil
}

// System aggregates the ledger, the log, the scheduler and the executor of one network.
type System struct {
	Ledger    *Ledger
	Log       *Log
	Executor  *Executor
	Scheduler *Scheduler

	chain block.Chain
	j     *journal
	now   func() time.Time
}

// New returns an empty System submitting transfers to chain and parsing credentials with parser.
func New(chain block.Chain, parser *keys.Parser, opts Options) *System {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	j := &journal{db: opts.Store, mb: opts.Broker, net: opts.Network, m: opts.Metrics}

	ledger := NewLedger(parser, opts.AllowOverwrite)
	ledger.now = now

	l := NewLog()

	exec := NewExecutor(ledger, l, chain, opts.Timeout)
	exec.j, exec.now = j, now

	sched := NewScheduler(exec, opts.SweepFailFast)
	sched.j, sched.now, sched.locker = j, now, opts.Locker

	if opts.SweepLease > 0 {
		sched.lease = opts.SweepLease
	}

	return &System{Ledger: ledger, Log: l, Executor: exec, Scheduler: sched, chain: chain, j: j, now: now}
}

// Network returns the name of the network of the system.
func (s *System) Network() string {
	return s.j.net
}

// Register registers an account with zero balance.
func (s *System) Register(ctx context.Context, id, credential string) error {
	if err := s.Ledger.Register(id, credential); err != nil {
		return err
	}

	a, _ := s.Ledger.record(id)
	s.j.account(ctx, a)
	s.j.publish(msg.AccountRegistered, id, a.UpdatedAt, func(e *msg.Event) { e.To = a.Address })

	return nil
}

// BalanceOf returns the cached balance of an account.
func (s *System) BalanceOf(id string) (decimal.Decimal, error) {
	return s.Ledger.BalanceOf(id)
}

// Accounts returns the registered identifiers in sorted order.
func (s *System) Accounts() []string {
	return s.Ledger.Accounts()
}

// Deposit credits amount to a tracked account and returns its new balance.
func (s *System) Deposit(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	bal, err := s.Ledger.Deposit(id, amount)
	if err != nil {
		return bal, err
	}

	if a, ok := s.Ledger.record(id); ok {
		s.j.account(ctx, a)
	}

	return bal, nil
}

// SyncBalance replaces the cached balance of an account with its balance on the network.
func (s *System) SyncBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	unlock := s.Ledger.lockAccounts(id)
	defer unlock()

	a, ok := s.Ledger.get(id)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	st, err := s.Executor.loadAccount(ctx, a.key.Address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: loading %s: %w", ErrTransactionFailed, id, err)
	}

	bal := decimal.Zero
	if st.Balance != nil {
		bal = decimal.NewFromBigInt(st.Balance, -s.chain.Decimals())
	}

	if err = s.Ledger.setBalance(id, bal); err != nil {
		return decimal.Zero, err
	}

	if rec, ok := s.Ledger.record(id); ok {
		s.j.account(ctx, rec)
	}

	return bal, nil
}

// Pay executes a one-off payment.
func (s *System) Pay(ctx context.Context, from, to string, amount decimal.Decimal, message string) (Payment, error) {
	return s.Executor.Execute(ctx, from, to, amount, message)
}

// History returns the payments sent or received by id, oldest first.
func (s *System) History(id string) []Payment {
	return s.Log.History(id)
}

// AddRecurring registers a recurring payment.
func (s *System) AddRecurring(from, to string, amount decimal.Decimal, message string,
	interval time.Duration) (Recurring, error) {
	return s.Scheduler.Add(from, to, amount, message, interval)
}

// Recurring returns the recurring payments in registration order.
func (s *System) Recurring() []Recurring {
	return s.Scheduler.Recurring()
}

// Sweep executes the recurring payments due at now.
func (s *System) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	return s.Scheduler.Sweep(ctx, now)
}

// Restore loads the accounts, payments and recurring payments saved in the store. It is meant to be called on an
// empty System, before serving.
func (s *System) Restore(ctx context.Context) error {
	if s.j.db == nil {
		return nil
	}

	snap, err := s.j.db.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading store: %w", err)
	}

	if err = s.Ledger.restore(snap.Accounts); err != nil {
		return err
	}

	s.Log.restore(snap.Payments)
	s.Scheduler.restore(snap.Recurring)

	pending := 0

	for _, a := range snap.Attempts {
		if a.State == store.PENDING {
			pending++
		}
	}

	log.Printf("[%s] Restored %d accounts, %d payments, %d recurring payments, %d pending attempts", s.j.net,
		len(snap.Accounts), len(snap.Payments), len(snap.Recurring), pending)

	return nil
}
