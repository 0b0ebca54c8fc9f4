package payment

import (
	"context"
	"log"
	"time"

	"github.com/tarancss/rpay/lib/metrics"
	"github.com/tarancss/rpay/lib/msg"
	"github.com/tarancss/rpay/lib/store"
)

// journal writes through to the optional store and broker. Failures are logged and never returned: the in-memory
// state is authoritative for the running process.
type journal struct {
	db  store.DB
	mb  msg.Broker
	net string
	m   *metrics.Metrics
}

func (j *journal) account(ctx context.Context, a store.Account) {
	if j.db == nil {
		return
	}

	if err := j.db.SaveAccount(context.WithoutCancel(ctx), a); err != nil {
		log.Printf("[%s] WARN: saving account %s: %v", j.net, a.ID, err)
	}
}

func (j *journal) payment(ctx context.Context, p store.Payment) {
	if j.db == nil {
		return
	}

	if err := j.db.SavePayment(context.WithoutCancel(ctx), p); err != nil {
		log.Printf("[%s] WARN: saving payment %s: %v", j.net, p.ID, err)
	}
}

func (j *journal) recurring(ctx context.Context, r store.Recurring) {
	if j.db == nil {
		return
	}

	if err := j.db.SaveRecurring(context.WithoutCancel(ctx), r); err != nil {
		log.Printf("[%s] WARN: saving recurring %s: %v", j.net, r.ID, err)
	}
}

func (j *journal) attempt(ctx context.Context, a store.Attempt) {
	if j.db == nil {
		return
	}

	if err := j.db.SaveAttempt(context.WithoutCancel(ctx), a); err != nil {
		log.Printf("[%s] WARN: saving attempt %s in state %s: %v", j.net, a.ID, a.State, err)
	}
}

func (j *journal) publish(typ, id string, ts time.Time, fill func(e *msg.Event)) {
	if j.mb == nil {
		return
	}

	e := msg.Event{Type: typ, ID: id, TS: ts}
	if fill != nil {
		fill(&e)
	}

	if err := j.mb.Publish(j.net, e); err != nil {
		log.Printf("[%s] WARN: publishing %s %s: %v", j.net, typ, id, err)
	}
}
