package payment

import (
	"sync"

	"github.com/tarancss/rpay/lib/store"
)

// Log is the append-only sequence of completed payments.
type Log struct {
	mu       sync.RWMutex
	payments []Payment
}

// NewLog returns an empty payment log.
func NewLog() *Log {
	return &Log{}
}

// append adds a payment and returns its sequence number, starting at 1.
func (l *Log) append(p Payment) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.payments = append(l.payments, p)

	return int64(len(l.payments))
}

// History returns a copy of the payments where id is the sender or the receiver, in the order they were appended.
func (l *Log) History(id string) []Payment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r := []Payment{}

	for _, p := range l.payments {
		if p.From == id || p.To == id {
			r = append(r, p)
		}
	}

	return r
}

// Len returns the number of payments.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.payments)
}

// restore appends saved payments, which must be sorted by sequence number.
func (l *Log) restore(ps []store.Payment) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range ps {
		l.payments = append(l.payments, Payment{
			ID: p.ID, From: p.From, To: p.To, Amount: p.Amount, Message: p.Message, Hash: p.Hash,
			Timestamp: p.Timestamp,
		})
	}
}
