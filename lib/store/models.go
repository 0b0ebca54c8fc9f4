package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Attempt states.
const (
	PENDING   string = "pending"
	CONFIRMED string = "confirmed"
	FAILED    string = "failed"
)

// Account contains the fields of an account saved to DB. Credential is saved as registered so the account can be
// restored: an HD path ("hd:...") is useless without the seed, but a raw private key is kept in plaintext and whoever
// reads the database can spend from the account. Register accounts with HD paths when persisting to a shared
// database.
type Account struct {
	ID         string          `json:"id"`
	Address    string          `json:"address"`
	Credential string          `json:"-"`
	Balance    decimal.Decimal `json:"balance"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Payment contains the fields of a completed payment saved to DB. Seq keeps the order of the payment log.
type Payment struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Message   string          `json:"message"`
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"ts"`
}

// Recurring contains the fields of a recurring payment saved to DB. Seq keeps the registration order.
type Recurring struct {
	ID       string          `json:"id"`
	Seq      int64           `json:"seq"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Amount   decimal.Decimal `json:"amount"`
	Message  string          `json:"message"`
	Interval time.Duration   `json:"interval"`
	NextDue  time.Time       `json:"nextDue"`
}

// Attempt contains the fields of a submission attempt saved to DB.
type Attempt struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Message   string          `json:"message"`
	State     string          `json:"state"`
	Hash      string          `json:"hash,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Snapshot is the full content of a store, every slice in its natural order.
type Snapshot struct {
	Accounts  []Account   `json:"accounts"`
	Payments  []Payment   `json:"payments"`
	Recurring []Recurring `json:"recurring"`
	Attempts  []Attempt   `json:"attempts"`
}
