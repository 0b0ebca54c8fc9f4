// Package types common blockchain types.
package types

import (
	"errors"
	"math/big"
)

// AccountState is the network view of an account at load time.
type AccountState struct {
	Address string   `json:"address"`
	Balance *big.Int `json:"balance"` // in base units (ie. wei)
}

// Transfer is a single-operation native asset transfer. Amount is in base units and Key is the hex encoded private
// key that signs the transaction.
type Transfer struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Amount *big.Int `json:"amount"`
	Memo   []byte   `json:"memo,omitempty"`
	Key    string   `json:"-"`
}

// Receipt is returned by a network once a transfer has been accepted.
type Receipt struct {
	Hash string   `json:"hash"`
	Fee  *big.Int `json:"fee"`
}

// Trans contains a simplified number of transaction fields. For the time being, we keep just one transfer from `From`
// to `To`.
type Trans struct {
	Block  string `json:"block"`
	Hash   string `json:"hash"`
	From   string `json:"from"`
	To     string `json:"to"`
	Value  string `json:"value"`
	Data   string `json:"data,omitempty"`
	Fee    uint64 `json:"fee"`
	Status uint8  `json:"status"`
	TS     uint32 `json:"ts"`
}

// Transaction status values.
const (
	TrxPending uint8 = 0
	TrxFailed  uint8 = 1
	TrxSuccess uint8 = 2
)

// Error codes.
var (
	ErrNoTrx       = errors.New("transaction not found")
	ErrWrongAmt    = errors.New("amount must be a positive integer of base units")
	ErrRejected    = errors.New("transaction rejected by network")
	ErrUnreachable = errors.New("network unreachable")
)
