// Package sim implements an in-process simulated network. It keeps native asset balances per address and accepts
// transfers the way a node would, so the payment core can run without a real blockchain (demo binary, tests).
package sim

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tarancss/rpay/lib/block/types"
)

// DefaultDecimals is used when no decimals are configured.
const DefaultDecimals int32 = 18

// Sim is a simulated network.
type Sim struct {
	mu        sync.Mutex
	dec       int32
	bal       map[string]*big.Int
	txs       map[string]types.Trans
	hashes    []string
	nonce     uint64
	block     uint64
	delay     time.Duration
	loadErr   error
	submitErr error
}

// New returns an empty simulated network.
func New(decimals int32) *Sim {
	if decimals == 0 {
		decimals = DefaultDecimals
	}

	return &Sim{
		dec: decimals,
		bal: make(map[string]*big.Int),
		txs: make(map[string]types.Trans),
	}
}

// Decimals returns the number of decimals of the native asset.
func (s *Sim) Decimals() int32 {
	return s.dec
}

// Close is a no-op.
func (s *Sim) Close() {}

// Fund adds base units to the balance of address.
func (s *Sim) Fund(address string, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.balance(address)
	b.Add(b, amount)
}

// Balance returns a copy of the balance of address.
func (s *Sim) Balance(address string) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return new(big.Int).Set(s.balance(address))
}

// FailLoad makes every LoadAccount call fail with err until reset with nil.
func (s *Sim) FailLoad(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

// FailSubmit makes every Submit call fail with err until reset with nil.
func (s *Sim) FailSubmit(err error) {
	s.mu.Lock()
	s.submitErr = err
	s.mu.Unlock()
}

// SetDelay sets the latency of every request.
func (s *Sim) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Forget drops a transaction as if it had never been mined.
func (s *Sim) Forget(hash string) {
	s.mu.Lock()
	delete(s.txs, hash)
	s.mu.Unlock()
}

// Transfers returns the accepted transactions in submission order.
func (s *Sim) Transfers() []types.Trans {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := make([]types.Trans, 0, len(s.hashes))

	for _, h := range s.hashes {
		if tx, ok := s.txs[h]; ok {
			r = append(r, tx)
		}
	}

	return r
}

// LoadAccount returns the balance of address. Unknown addresses have a zero balance.
func (s *Sim) LoadAccount(ctx context.Context, address string) (types.AccountState, error) {
	if err := s.wait(ctx); err != nil {
		return types.AccountState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return types.AccountState{}, s.loadErr
	}

	return types.AccountState{Address: address, Balance: new(big.Int).Set(s.balance(address))}, nil
}

// Submit moves the amount between the balances and records the transaction. It is rejected when the sender does not
// hold enough base units on the network.
func (s *Sim) Submit(ctx context.Context, t types.Transfer) (types.Receipt, error) {
	if err := s.wait(ctx); err != nil {
		return types.Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitErr != nil {
		return types.Receipt{}, s.submitErr
	}

	if t.Amount == nil || t.Amount.Sign() <= 0 {
		return types.Receipt{}, types.ErrWrongAmt
	}

	from := s.balance(t.From)
	if from.Cmp(t.Amount) < 0 {
		return types.Receipt{}, fmt.Errorf("%w: insufficient funds in %s", types.ErrRejected, t.From)
	}

	from.Sub(from, t.Amount)

	to := s.balance(t.To)
	to.Add(to, t.Amount)

	s.nonce++
	s.block++

	hash := crypto.Keccak256Hash(
		[]byte(strings.ToLower(t.From)),
		[]byte(strings.ToLower(t.To)),
		t.Amount.Bytes(),
		new(big.Int).SetUint64(s.nonce).Bytes(),
	).Hex()

	s.txs[hash] = types.Trans{
		Block:  fmt.Sprintf("0x%x", s.block),
		Hash:   hash,
		From:   t.From,
		To:     t.To,
		Value:  "0x" + t.Amount.Text(16), //nolint:gomnd // hex
		Data:   string(t.Memo),
		Status: types.TrxSuccess,
		TS:     uint32(time.Now().Unix()),
	}
	s.hashes = append(s.hashes, hash)

	return types.Receipt{Hash: hash, Fee: new(big.Int)}, nil
}

// Get returns a recorded transaction.
func (s *Sim) Get(ctx context.Context, hash string) (types.Trans, error) {
	if err := s.wait(ctx); err != nil {
		return types.Trans{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[hash]
	if !ok {
		return types.Trans{}, types.ErrNoTrx
	}

	return tx, nil
}

// balance returns the balance pointer for address, creating it if needed. Must be called with the lock held.
func (s *Sim) balance(address string) *big.Int {
	a := strings.ToLower(address)

	b, ok := s.bal[a]
	if !ok {
		b = new(big.Int)
		s.bal[a] = b
	}

	return b
}

// wait simulates latency honouring the context.
func (s *Sim) wait(ctx context.Context) error {
	s.mu.Lock()
	d := s.delay
	s.mu.Unlock()

	if d == 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
