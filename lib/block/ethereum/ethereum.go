// Package ethereum implements the network interface for ethereum networks.
package ethereum

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/tarancss/ethcli"

	"github.com/tarancss/rpay/lib/block/types"
)

// EtherDecimals is the number of decimals of ether (1 ether = 10^18 wei).
const EtherDecimals int32 = 18

// Ethereum implements a connection to an ethereum-type chain.
type Ethereum struct {
	c   *ethcli.EthCli
	dec int32
}

// Init returns a connection to an ethereum node, using secret if necessary for authentication. decimals defaults to
// EtherDecimals when zero.
func Init(node, secret string, decimals int32) (*Ethereum, error) {
	var c *ethcli.EthCli

	var err error

	if c = ethcli.Init(node, secret); c == nil {
		err = errors.New("Cannot connect to ethereum blockchain in " + node)
	}

	if decimals == 0 {
		decimals = EtherDecimals
	}

	return &Ethereum{c: c, dec: decimals}, err
}

// Decimals returns the number of decimals of the native asset.
func (e *Ethereum) Decimals() int32 {
	return e.dec
}

// Close ends a connection
func (e *Ethereum) Close() {
	e.c.End()
}

// LoadAccount loads the ether balance of the address.
func (e *Ethereum) LoadAccount(ctx context.Context, address string) (types.AccountState, error) {
	bal := new(big.Int)

	err := call(ctx, func() error {
		return e.c.GetBalance(address, "", bal, new(big.Int))
	})
	if err != nil {
		return types.AccountState{}, fmt.Errorf("ethereum: load account %s: %w", address, err)
	}

	return types.AccountState{Address: address, Balance: bal}, nil
}

// Submit signs and sends an ether transfer carrying the memo as transaction data. It returns the transaction hash and
// the expected fee (gas * price).
func (e *Ethereum) Submit(ctx context.Context, t types.Transfer) (types.Receipt, error) {
	amount, err := HexAmount(t.Amount)
	if err != nil {
		return types.Receipt{}, err
	}

	var price, gas uint64

	var hash []byte

	err = call(ctx, func() (err error) {
		price, gas, hash, err = e.c.SendTrx(t.From, t.To, "", amount, t.Memo, t.Key, 0, false)

		return
	})
	if err != nil {
		return types.Receipt{}, fmt.Errorf("ethereum: send %s to %s: %w", t.From, t.To, err)
	}

	fee := new(big.Int).SetUint64(price)
	fee = fee.Mul(fee, new(big.Int).SetUint64(gas))

	return types.Receipt{Hash: "0x" + hex.EncodeToString(hash), Fee: fee}, nil
}

// Get returns the details of the transaction for the given hash.
func (e *Ethereum) Get(ctx context.Context, hash string) (types.Trans, error) {
	var got types.Trans

	err := call(ctx, func() (err error) {
		var blk, fee uint64

		var ts int32

		var data []byte

		blk, ts, _, _, got.Status, fee, _, data, got.To, got.From, got.Value, err = e.c.GetTrx(hash)
		if err != nil {
			return
		}

		got.Block = fmt.Sprintf("0x%x", blk)
		got.TS = uint32(ts)
		got.Fee = fee
		got.Data = "0x" + hex.EncodeToString(data)

		return
	})
	if err != nil {
		return types.Trans{}, fmt.Errorf("ethereum: get %s: %w", hash, err)
	}

	// the node answers null for unknown transactions
	if got.From == "" {
		return types.Trans{}, types.ErrNoTrx
	}

	got.Hash = hash

	switch got.Status {
	case ethcli.TrxPending:
		got.Status = types.TrxPending
	case ethcli.TrxFailed:
		got.Status = types.TrxFailed
	default:
		got.Status = types.TrxSuccess
	}

	return got, nil
}

// HexAmount returns the "0x" prefixed hexadecimal representation of a positive amount of base units.
func HexAmount(amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", types.ErrWrongAmt
	}

	if amount.BitLen() > 256 { //nolint:gomnd // uint256
		return "", types.ErrWrongAmt
	}

	return "0x" + amount.Text(16), nil //nolint:gomnd // hex
}

// call runs a blocking ethcli request and returns early with the context error if the deadline expires first. The
// request keeps running in the background as ethcli cannot be cancelled.
func call(ctx context.Context, f func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- f()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
