package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/rpay/lib/block/sim"
	"github.com/tarancss/rpay/lib/block/types"
	"github.com/tarancss/rpay/lib/keys"
	"github.com/tarancss/rpay/lib/metrics"
	"github.com/tarancss/rpay/lib/store"
	"github.com/tarancss/rpay/lib/store/memory"
	"github.com/tarancss/rpay/payment"
)

const (
	aliceKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	carol    = "0x357dd3856d856197c1a000bbAb4aBCB97Dfc92c4"
)

// reverting reports some transactions of the simulated network as failed.
type reverting struct {
	*sim.Sim
	failed map[string]bool
}

func (r reverting) Get(ctx context.Context, hash string) (types.Trans, error) {
	tx, err := r.Sim.Get(ctx, hash)
	if err == nil && r.failed[hash] {
		tx.Status = types.TrxFailed
	}

	return tx, err
}

// pay makes n payments of 1 from alice to carol, journaled in db.
func pay(t *testing.T, db store.DB, net *sim.Sim, n int) []payment.Payment {
	t.Helper()

	ctx := context.Background()
	s := payment.New(net, &keys.Parser{}, payment.Options{Store: db})
	require.NoError(t, s.Register(ctx, "alice", aliceKey))

	addr, err := s.Ledger.Address("alice")
	require.NoError(t, err)

	net.Fund(addr, decimal.NewFromInt(int64(n)).Shift(net.Decimals()).BigInt())
	_, err = s.SyncBalance(ctx, "alice")
	require.NoError(t, err)

	ps := make([]payment.Payment, n)

	for i := range ps {
		ps[i], err = s.Pay(ctx, "alice", carol, decimal.NewFromInt(1), "")
		require.NoError(t, err)
	}

	return ps
}

func TestRunClean(t *testing.T) {
	db := memory.New()
	net := sim.New(0)
	pay(t, db, net, 3)

	rep, err := New("sim", db, net, time.Minute, time.Second, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Payments)
	assert.Zero(t, rep.Pending)
	assert.Empty(t, rep.Findings)
}

func TestRunFindings(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	net := sim.New(0)
	ps := pay(t, db, net, 4)

	net.Forget(ps[1].Hash)

	chain := reverting{Sim: net, failed: map[string]bool{ps[3].Hash: true}}
	now := time.Now()

	// a submission that never got an answer and one still in progress
	require.NoError(t, db.SaveAttempt(ctx, store.Attempt{ID: "old", From: "alice", To: carol,
		Amount: decimal.NewFromInt(2), State: store.PENDING, Error: "context deadline exceeded",
		CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, db.SaveAttempt(ctx, store.Attempt{ID: "new", From: "alice", To: carol,
		Amount: decimal.NewFromInt(2), State: store.PENDING, CreatedAt: now}))

	m := metrics.New(prometheus.NewRegistry())

	rep, err := New("sim", db, chain, 10*time.Minute, time.Second, m).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Payments)
	assert.Equal(t, 2, rep.Pending)

	require.Len(t, rep.Findings, 3)
	assert.Equal(t, MISSING, rep.Findings[0].Kind)
	assert.Equal(t, ps[1].ID, rep.Findings[0].ID)
	assert.Equal(t, REVERTED, rep.Findings[1].Kind)
	assert.Equal(t, ps[3].Hash, rep.Findings[1].Hash)
	assert.Equal(t, UNKNOWN, rep.Findings[2].Kind)
	assert.Equal(t, "old", rep.Findings[2].ID)
	assert.Contains(t, rep.Findings[2].Detail, "deadline")
}

func TestRunUnreachable(t *testing.T) {
	db := memory.New()
	net := sim.New(0)
	pay(t, db, net, 2)

	net.SetDelay(time.Second)

	_, err := New("sim", db, net, time.Minute, 10*time.Millisecond, nil).Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
