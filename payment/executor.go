package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tarancss/rpay/lib/block"
	"github.com/tarancss/rpay/lib/block/types"
	"github.com/tarancss/rpay/lib/keys"
	"github.com/tarancss/rpay/lib/metrics"
	"github.com/tarancss/rpay/lib/msg"
	"github.com/tarancss/rpay/lib/store"
)

// DefaultTimeout bounds every call to the network.
const DefaultTimeout = 30 * time.Second

// Executor checks balances, submits transfers to the network and, once a transfer is confirmed, updates the ledger
// and appends it to the log.
//
// Every submission is journaled as an attempt before it is sent. If the process dies between a confirmed submission
// and the local update, the attempt stays pending and the reconciler reports it.
type Executor struct {
	ledger  *Ledger
	log     *Log
	chain   block.Chain
	timeout time.Duration
	j       *journal
	now     func() time.Time
}

// NewExecutor returns an executor submitting to chain. A zero timeout means DefaultTimeout.
func NewExecutor(ledger *Ledger, l *Log, chain block.Chain, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Executor{ledger: ledger, log: l, chain: chain, timeout: timeout, j: &journal{}, now: time.Now}
}

// Execute pays amount from the account from to the receiver to, which is either a tracked account or a public
// address.
func (e *Executor) Execute(ctx context.Context, from, to string, amount decimal.Decimal, message string) (Payment,
	error) {
	if !amount.IsPositive() {
		e.j.m.Payment(metrics.Rejected, amount)

		return Payment{}, ErrInvalidAmount
	}

	// sender and receiver stay locked until the ledger is updated
	unlock := e.ledger.lockAccounts(from, to)
	defer unlock()

	sender, ok := e.ledger.get(from)
	if !ok {
		e.j.m.Payment(metrics.Rejected, amount)

		return Payment{}, fmt.Errorf("%w: %s", ErrNotFound, from)
	}

	if sender.balance.LessThan(amount) {
		e.j.m.Payment(metrics.Rejected, amount)

		return Payment{}, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, sender.balance, amount)
	}

	address, err := e.receiver(to)
	if err != nil {
		e.j.m.Payment(metrics.Rejected, amount)

		return Payment{}, err
	}

	units, err := e.baseUnits(amount)
	if err != nil {
		e.j.m.Payment(metrics.Rejected, amount)

		return Payment{}, err
	}

	if _, err = e.loadAccount(ctx, sender.key.Address); err != nil {
		e.j.m.Payment(metrics.Failed, amount)

		return Payment{}, fmt.Errorf("%w: loading %s: %w", ErrTransactionFailed, from, err)
	}

	att := store.Attempt{
		ID: uuid.NewString(), From: from, To: to, Amount: amount, Message: message, State: store.PENDING,
		CreatedAt: e.now(),
	}
	att.UpdatedAt = att.CreatedAt
	e.j.attempt(ctx, att)

	rec, err := e.submit(ctx, types.Transfer{
		From: sender.key.Address, To: address, Amount: units, Memo: []byte(message), Key: sender.key.Hex(),
	})
	if err != nil {
		// a transfer interrupted by a deadline or a cancellation may still land on the network, its outcome is left
		// to reconciliation
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			att.State = store.FAILED
		}

		att.Error, att.UpdatedAt = err.Error(), e.now()
		e.j.attempt(ctx, att)
		e.j.publish(msg.PaymentFailed, att.ID, att.UpdatedAt, func(ev *msg.Event) {
			ev.From, ev.To, ev.Amount, ev.Message, ev.Error = from, to, amount.String(), message, err.Error()
		})
		e.j.m.Payment(metrics.Failed, amount)

		log.Printf("[%s] Payment %s from %s to %s failed: %v", e.j.net, att.ID, from, to, err)

		return Payment{}, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	e.ledger.debit(from, amount)
	e.ledger.credit(to, amount)

	p := Payment{ID: att.ID, From: from, To: to, Amount: amount, Message: message, Hash: rec.Hash, Timestamp: e.now()}
	seq := e.log.append(p)

	att.State, att.Hash, att.UpdatedAt = store.CONFIRMED, rec.Hash, p.Timestamp
	e.j.attempt(ctx, att)
	e.j.payment(ctx, p.record(seq))

	for _, id := range []string{from, to} {
		if a, ok := e.ledger.record(id); ok {
			e.j.account(ctx, a)
		}
	}

	e.j.publish(msg.PaymentCompleted, p.ID, p.Timestamp, func(ev *msg.Event) {
		ev.From, ev.To, ev.Amount, ev.Message, ev.Hash = from, to, amount.String(), message, p.Hash
	})
	e.j.m.Payment(metrics.Completed, amount)

	return p, nil
}

// receiver resolves the public address of to: the address of a tracked account, otherwise to itself.
func (e *Executor) receiver(to string) (string, error) {
	if a, ok := e.ledger.get(to); ok {
		return a.key.Address, nil
	}

	address, err := keys.Public(to)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return address, nil
}

// baseUnits converts amount to the smallest unit of the network asset.
func (e *Executor) baseUnits(amount decimal.Decimal) (*big.Int, error) {
	units := amount.Shift(e.chain.Decimals())
	if !units.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, amount, e.chain.Decimals())
	}

	return units.BigInt(), nil
}

func (e *Executor) loadAccount(ctx context.Context, address string) (types.AccountState, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.chain.LoadAccount(ctx, address)
}

// submit is bounded by the executor timeout only, a caller going away does not interrupt a transfer in flight.
func (e *Executor) submit(ctx context.Context, t types.Transfer) (types.Receipt, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	return e.chain.Submit(ctx, t)
}
