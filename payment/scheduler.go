package payment

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tarancss/rpay/lib/lock"
	"github.com/tarancss/rpay/lib/msg"
	"github.com/tarancss/rpay/lib/store"
)

// SweepKey is the lock key shared by every instance sweeping the same recurring payments.
const SweepKey = "sweep"

// DefaultSweepLease is how long a sweep may hold the shared lock.
const DefaultSweepLease = 5 * time.Minute

// Scheduler keeps the recurring payments and executes the due ones on every sweep.
type Scheduler struct {
	mu      sync.Mutex // guards intents and their fields
	intents []*Recurring

	sweeping sync.Mutex
	exec     *Executor
	locker   lock.Locker
	lease    time.Duration
	failFast bool
	j        *journal
	now      func() time.Time
}

// NewScheduler returns a scheduler executing payments with exec. With failFast a sweep stops at the first failure.
func NewScheduler(exec *Executor, failFast bool) *Scheduler {
	return &Scheduler{exec: exec, failFast: failFast, lease: DefaultSweepLease, j: &journal{}, now: time.Now}
}

// Add registers a recurring payment first due after interval.
func (s *Scheduler) Add(from, to string, amount decimal.Decimal, message string, interval time.Duration) (Recurring,
	error) {
	if !amount.IsPositive() {
		return Recurring{}, ErrInvalidAmount
	}

	if interval <= 0 {
		return Recurring{}, ErrInvalidInterval
	}

	r := &Recurring{
		ID: uuid.NewString(), From: from, To: to, Amount: amount, Message: message, Interval: interval,
		NextDue: s.now().Add(interval),
	}

	s.mu.Lock()
	s.intents = append(s.intents, r)
	seq := int64(len(s.intents))
	c := *r
	s.mu.Unlock()

	ctx := context.Background()
	s.j.recurring(ctx, c.record(seq))
	s.j.publish(msg.RecurringRegistered, c.ID, s.now(), func(e *msg.Event) {
		e.From, e.To, e.Amount, e.Message = c.From, c.To, c.Amount.String(), c.Message
	})

	return c, nil
}

// Recurring returns a copy of the recurring payments in registration order.
func (s *Scheduler) Recurring() []Recurring {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := make([]Recurring, len(s.intents))
	for i, in := range s.intents {
		r[i] = *in
	}

	return r
}

// Sweep executes, in registration order, every recurring payment due at now that is not already in flight. A
// successful payment is rescheduled at now plus its interval; a failed one stays due.
//
// Failures do not stop the sweep unless the scheduler is fail-fast. The report lists what happened and the error
// joins all the failures. Only one sweep runs at a time: ErrSweepInProgress is returned if another sweep, in this
// process or holding the shared lock, is running.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (rep SweepReport, err error) {
	if !s.sweeping.TryLock() {
		return rep, ErrSweepInProgress
	}
	defer s.sweeping.Unlock()

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, SweepKey, s.lease)
		if err != nil {
			return rep, fmt.Errorf("acquiring sweep lock: %w", err)
		}

		if !ok {
			return rep, ErrSweepInProgress
		}

		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Printf("[scheduler] WARN: releasing sweep lock: %v", err)
			}
		}()
	}

	tr := s.j.m.Track()

	s.mu.Lock()
	intents := make([]*Recurring, len(s.intents))
	copy(intents, s.intents)
	s.mu.Unlock()

	for i, r := range intents {
		s.mu.Lock()
		due := !r.NextDue.After(now) && !r.InFlight
		if due {
			r.InFlight = true
		}
		c := *r
		s.mu.Unlock()

		if !due {
			continue
		}

		p, perr := s.exec.Execute(ctx, c.From, c.To, c.Amount, c.Message)

		s.mu.Lock()
		r.InFlight = false
		if perr == nil {
			if next := now.Add(r.Interval); next.After(r.NextDue) {
				r.NextDue = next
			}
		}
		c = *r
		s.mu.Unlock()

		if perr != nil {
			log.Printf("[scheduler] Recurring payment %s failed: %v", c.ID, perr)

			rep.Failures = append(rep.Failures, SweepFailure{Recurring: c.ID, Err: perr, Error: perr.Error()})

			if s.failFast {
				rep.Skipped = s.due(intents[i+1:], now)

				break
			}

			continue
		}

		rep.Executed = append(rep.Executed, p)
		s.j.recurring(ctx, c.record(int64(i+1)))
	}

	return rep, tr.End(len(rep.Failures), rep.Err())
}

// due counts the intents of rs due at now and not being executed.
func (s *Scheduler) due(rs []*Recurring, now time.Time) (n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rs {
		if !r.NextDue.After(now) && !r.InFlight {
			n++
		}
	}

	return n
}

// restore appends saved recurring payments, which must be sorted by sequence number.
func (s *Scheduler) restore(rs []store.Recurring) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rs {
		s.intents = append(s.intents, &Recurring{
			ID: r.ID, From: r.From, To: r.To, Amount: r.Amount, Message: r.Message, Interval: r.Interval,
			NextDue: r.NextDue,
		})
	}
}
