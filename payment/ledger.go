package payment

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tarancss/rpay/lib/keys"
	"github.com/tarancss/rpay/lib/store"
)

type account struct {
	id         string
	key        keys.Key
	credential string
	balance    decimal.Decimal
	updated    time.Time
}

// Ledger maps account identifiers to their key and cached balance.
//
// The map is guarded by mu. Operations spanning a check and an update of balances (payments and deposits) must also
// hold the account locks, see lockAccounts.
type Ledger struct {
	mu        sync.RWMutex
	accounts  map[string]*account
	parser    *keys.Parser
	overwrite bool
	now       func() time.Time

	lmu   sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedger returns an empty ledger parsing credentials with parser. With overwrite, registering an existing
// identifier replaces the account and resets its balance instead of failing.
func NewLedger(parser *keys.Parser, overwrite bool) *Ledger {
	return &Ledger{
		accounts:  make(map[string]*account),
		parser:    parser,
		overwrite: overwrite,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Register inserts an account with zero balance.
func (l *Ledger) Register(id, credential string) error {
	if id == "" {
		return ErrInvalidID
	}

	key, err := l.parser.Secret(credential)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	unlock := l.lockAccounts(id)
	defer unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.accounts[id]; ok {
		if !l.overwrite {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
		}

		log.Printf("[ledger] WARN: account %s re-registered, balance %s reset to zero", id, prev.balance)
	}

	l.accounts[id] = &account{id: id, key: key, credential: credential, balance: decimal.Zero, updated: l.now()}

	return nil
}

// BalanceOf returns the cached balance of an account.
func (l *Ledger) BalanceOf(id string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return a.balance, nil
}

// Address returns the public address of an account.
func (l *Ledger) Address(id string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return a.key.Address, nil
}

// Accounts returns the registered identifiers in sorted order.
func (l *Ledger) Accounts() []string {
	l.mu.RLock()
	ids := make([]string, 0, len(l.accounts))

	for id := range l.accounts {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	sort.Strings(ids)

	return ids
}

// Deposit credits a tracked account with amount, returning the new balance.
func (l *Ledger) Deposit(id string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	unlock := l.lockAccounts(id)
	defer unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	a.balance = a.balance.Add(amount)
	a.updated = l.now()

	return a.balance, nil
}

// setBalance replaces the cached balance. Must be called with the account lock held.
func (l *Ledger) setBalance(id string, balance decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	a.balance = balance
	a.updated = l.now()

	return nil
}

// debit takes amount from id. Must be called with the account lock held, after checking the balance.
func (l *Ledger) debit(id string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a, ok := l.accounts[id]; ok {
		a.balance = a.balance.Sub(amount)
		a.updated = l.now()
	}
}

// credit adds amount to id. Untracked receivers are skipped.
func (l *Ledger) credit(id string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a, ok := l.accounts[id]; ok {
		a.balance = a.balance.Add(amount)
		a.updated = l.now()
	}
}

// get returns a copy of the account.
func (l *Ledger) get(id string) (account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[id]
	if !ok {
		return account{}, false
	}

	return *a, true
}

// record returns the account as saved to the store.
func (l *Ledger) record(id string) (store.Account, bool) {
	a, ok := l.get(id)
	if !ok {
		return store.Account{}, false
	}

	return store.Account{
		ID: a.id, Address: a.key.Address, Credential: a.credential, Balance: a.balance, UpdatedAt: a.updated,
	}, true
}

// restore loads saved accounts, replacing any account with the same identifier.
func (l *Ledger) restore(accs []store.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sa := range accs {
		key, err := l.parser.Secret(sa.Credential)
		if err != nil {
			return fmt.Errorf("restoring account %s: %w: %w", sa.ID, ErrInvalidCredential, err)
		}

		l.accounts[sa.ID] = &account{
			id: sa.ID, key: key, credential: sa.Credential, balance: sa.Balance, updated: sa.UpdatedAt,
		}
	}

	return nil
}

// lockAccounts locks the given accounts in sorted order, so that two payments between the same accounts in opposite
// directions cannot deadlock, and returns the function unlocking them.
func (l *Ledger) lockAccounts(ids ...string) func() {
	sorted := make([]string, 0, len(ids))

	for _, id := range ids {
		dup := false

		for _, s := range sorted {
			if s == id {
				dup = true

				break
			}
		}

		if !dup {
			sorted = append(sorted, id)
		}
	}

	sort.Strings(sorted)

	l.lmu.Lock()
	mus := make([]*sync.Mutex, len(sorted))

	for i, id := range sorted {
		mu, ok := l.locks[id]
		if !ok {
			mu = new(sync.Mutex)
			l.locks[id] = mu
		}

		mus[i] = mu
	}
	l.lmu.Unlock()

	for _, mu := range mus {
		mu.Lock()
	}

	return func() {
		for i := len(mus) - 1; i >= 0; i-- {
			mus[i].Unlock()
		}
	}
}
