package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/tarancss/rpay/lib/block/types"
)

// TestHexAmount tests the conversion of base units to the hex strings sent to the node.
func TestHexAmount(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)

	cases := []struct {
		in  *big.Int
		out string
		err error
	}{
		{big.NewInt(0x565656), "0x565656", nil},
		{big.NewInt(1), "0x1", nil},
		{new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), "0xde0b6b3a7640000", nil},
		{big.NewInt(0), "", types.ErrWrongAmt},
		{big.NewInt(-5), "", types.ErrWrongAmt},
		{nil, "", types.ErrWrongAmt},
		{tooBig, "", types.ErrWrongAmt},
	}

	for _, c := range cases {
		out, err := HexAmount(c.in)
		if !errors.Is(err, c.err) || out != c.out {
			t.Errorf("HexAmount(%v) = %s, %v; expected %s, %v", c.in, out, err, c.out, c.err)
		}
	}
}

// TestCall makes sure a blocking request is abandoned when the context expires.
func TestCall(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	err := call(ctx, func() error {
		<-release

		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded but got %v", err)
	}

	if err = call(context.Background(), func() error { return types.ErrRejected }); !errors.Is(err, types.ErrRejected) {
		t.Errorf("expected the request error but got %v", err)
	}
}

// TestDecimals checks the default decimals of ether.
func TestDecimals(t *testing.T) {
	e := &Ethereum{dec: EtherDecimals}
	if e.Decimals() != 18 {
		t.Errorf("unexpected decimals %d", e.Decimals())
	}
}
