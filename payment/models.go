package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tarancss/rpay/lib/store"
)

// Payment is a completed transfer. ID is the idempotency token of the attempt that produced it.
type Payment struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Message   string          `json:"message,omitempty"`
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"ts"`
}

// Recurring is a repeating payment due at NextDue.
type Recurring struct {
	ID       string          `json:"id"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Amount   decimal.Decimal `json:"amount"`
	Message  string          `json:"message,omitempty"`
	Interval time.Duration   `json:"interval"`
	NextDue  time.Time       `json:"nextDue"`
	InFlight bool            `json:"inFlight"`
}

// SweepFailure is a recurring payment that could not be executed during a sweep.
type SweepFailure struct {
	Recurring string `json:"recurring"`
	Err       error  `json:"-"`
	Error     string `json:"error"`
}

// SweepReport is the outcome of a sweep. Skipped counts the due intents left unexecuted after a fail-fast abort.
type SweepReport struct {
	Executed []Payment      `json:"executed"`
	Failures []SweepFailure `json:"failures"`
	Skipped  int            `json:"skipped"`
}

// Err joins the failures of the sweep, nil if there were none.
func (r SweepReport) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}

	return errors.Join(errs...)
}

func (p Payment) record(seq int64) store.Payment {
	return store.Payment{
		ID: p.ID, Seq: seq, From: p.From, To: p.To, Amount: p.Amount, Message: p.Message, Hash: p.Hash,
		Timestamp: p.Timestamp,
	}
}

func (r Recurring) record(seq int64) store.Recurring {
	return store.Recurring{
		ID: r.ID, Seq: seq, From: r.From, To: r.To, Amount: r.Amount, Message: r.Message, Interval: r.Interval,
		NextDue: r.NextDue,
	}
}
