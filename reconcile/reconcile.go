// Package reconcile compares the payments journaled by the payment core with the network, the source of truth.
//
// A payment is recorded locally only after the network confirmed its submission, but both updates are not atomic.
// The reconciler reports what could have diverged: recorded payments the network does not know or reverted, and
// submissions whose outcome was never recorded. It never corrects anything.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tarancss/rpay/lib/block"
	"github.com/tarancss/rpay/lib/block/types"
	"github.com/tarancss/rpay/lib/metrics"
	"github.com/tarancss/rpay/lib/store"
)

// Kinds of findings.
const (
	MISSING  = "missing"  // recorded payment whose transaction is not on the network
	REVERTED = "reverted" // recorded payment whose transaction failed on the network
	UNKNOWN  = "unknown"  // submission still pending after the grace period
)

// Concurrency is the number of transactions fetched from the network at the same time.
var Concurrency = 4

// Finding is a payment or attempt that may have diverged from the network.
type Finding struct {
	Kind   string    `json:"kind"`
	ID     string    `json:"id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Amount string    `json:"amount"`
	Hash   string    `json:"hash,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Report is the outcome of a reconciliation pass.
type Report struct {
	Payments int       `json:"payments"` // payments checked against the network
	Pending  int       `json:"pending"`  // pending attempts found
	Findings []Finding `json:"findings"`
}

// Reconciler checks the store of one network.
type Reconciler struct {
	net     string
	db      store.DB
	chain   block.Chain
	grace   time.Duration
	timeout time.Duration
	m       *metrics.Metrics
	now     func() time.Time
}

// New returns a reconciler of the payments in db made on chain. Pending attempts younger than grace are considered
// in progress. m may be nil.
func New(net string, db store.DB, chain block.Chain, grace, timeout time.Duration, m *metrics.Metrics) *Reconciler {
	return &Reconciler{net: net, db: db, chain: chain, grace: grace, timeout: timeout, m: m, now: time.Now}
}

// Run makes a reconciliation pass. It fails if the store cannot be loaded or the network cannot be reached, otherwise
// it returns the findings, also logged, in the order of the log.
func (r *Reconciler) Run(ctx context.Context) (rep Report, err error) {
	snap, err := r.db.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("reconcile: loading store: %w", err)
	}

	found := make([]*Finding, len(snap.Payments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Concurrency)

	var mu sync.Mutex

	for i, p := range snap.Payments {
		if p.Hash == "" {
			continue
		}

		g.Go(func() error {
			f, err := r.check(gctx, p)
			if err != nil {
				return err
			}

			mu.Lock()
			found[i] = f
			rep.Payments++
			mu.Unlock()

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return rep, err
	}

	for _, f := range found {
		if f != nil {
			rep.Findings = append(rep.Findings, *f)
		}
	}

	for _, a := range snap.Attempts {
		if a.State != store.PENDING {
			continue
		}

		rep.Pending++

		if age := r.now().Sub(a.CreatedAt); age >= r.grace {
			rep.Findings = append(rep.Findings, Finding{
				Kind: UNKNOWN, ID: a.ID, From: a.From, To: a.To, Amount: a.Amount.String(), At: a.CreatedAt,
				Detail: fmt.Sprintf("pending for %v %s", age.Truncate(time.Second), a.Error),
			})
		}
	}

	for _, f := range rep.Findings {
		r.m.Mismatch(f.Kind)
		log.Printf("[%s] Reconcile %s: payment %s from %s to %s amount %s hash %s %s", r.net, f.Kind, f.ID, f.From,
			f.To, f.Amount, f.Hash, f.Detail)
	}

	log.Printf("[%s] Reconciled %d payments and %d pending attempts, %d findings", r.net, rep.Payments, rep.Pending,
		len(rep.Findings))

	return rep, nil
}

// check fetches the transaction of a payment, returning a finding if it diverged.
func (r *Reconciler) check(ctx context.Context, p store.Payment) (*Finding, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	f := &Finding{ID: p.ID, From: p.From, To: p.To, Amount: p.Amount.String(), Hash: p.Hash, At: p.Timestamp}

	tx, err := r.chain.Get(ctx, p.Hash)

	switch {
	case errors.Is(err, types.ErrNoTrx):
		f.Kind = MISSING

		return f, nil
	case err != nil:
		return nil, fmt.Errorf("reconcile: getting transaction %s: %w", p.Hash, err)
	case tx.Status == types.TrxFailed:
		f.Kind, f.Detail = REVERTED, "block "+tx.Block

		return f, nil
	}

	return nil, nil //nolint:nilnil // nothing found
}
