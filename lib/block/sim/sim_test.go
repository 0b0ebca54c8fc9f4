package sim

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/rpay/lib/block/types"
)

const (
	alice = "0x357dd3856d856197c1a000bbAb4aBCB97Dfc92c4"
	bob   = "0xf4cefc8d1afaa51d5a5e7f57d214b60429ca4378"
)

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	s := New(0)
	assert.Equal(t, DefaultDecimals, s.Decimals())

	s.Fund(alice, big.NewInt(100))

	st, err := s.LoadAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), st.Balance.Int64())

	r, err := s.Submit(ctx, types.Transfer{From: alice, To: bob, Amount: big.NewInt(40), Memo: []byte("rent")})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Hash)

	assert.Equal(t, int64(60), s.Balance(alice).Int64())
	assert.Equal(t, int64(40), s.Balance(bob).Int64())

	tx, err := s.Get(ctx, r.Hash)
	require.NoError(t, err)
	assert.Equal(t, "rent", tx.Data)
	assert.Equal(t, types.TrxSuccess, tx.Status)
	assert.Len(t, s.Transfers(), 1)

	// rejected: not enough funds on the network
	_, err = s.Submit(ctx, types.Transfer{From: bob, To: alice, Amount: big.NewInt(41)})
	assert.True(t, errors.Is(err, types.ErrRejected))

	s.Forget(r.Hash)
	_, err = s.Get(ctx, r.Hash)
	assert.ErrorIs(t, err, types.ErrNoTrx)
}

func TestFaults(t *testing.T) {
	ctx := context.Background()
	s := New(7)
	s.Fund(alice, big.NewInt(10))

	s.FailLoad(types.ErrUnreachable)
	_, err := s.LoadAccount(ctx, alice)
	assert.ErrorIs(t, err, types.ErrUnreachable)
	s.FailLoad(nil)

	s.FailSubmit(types.ErrRejected)
	_, err = s.Submit(ctx, types.Transfer{From: alice, To: bob, Amount: big.NewInt(1)})
	assert.ErrorIs(t, err, types.ErrRejected)
	s.FailSubmit(nil)

	s.SetDelay(time.Second)

	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	_, err = s.Submit(tctx, types.Transfer{From: alice, To: bob, Amount: big.NewInt(1)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(10), s.Balance(alice).Int64())
}
