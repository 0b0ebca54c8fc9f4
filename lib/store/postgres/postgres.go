// Package postgres implements the store interface for PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" //nolint:gci // load the postgres driver that is used by the system

	"github.com/tarancss/rpay/lib/store"
)

// schema is applied when connecting. Amounts are NUMERIC so decimals keep their precision.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	address     TEXT NOT NULL,
	credential  TEXT NOT NULL,
	balance     NUMERIC NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS payments (
	id          TEXT PRIMARY KEY,
	seq         BIGINT NOT NULL,
	sender      TEXT NOT NULL,
	receiver    TEXT NOT NULL,
	amount      NUMERIC NOT NULL,
	message     TEXT NOT NULL,
	hash        TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS recurring (
	id          TEXT PRIMARY KEY,
	seq         BIGINT NOT NULL,
	sender      TEXT NOT NULL,
	receiver    TEXT NOT NULL,
	amount      NUMERIC NOT NULL,
	message     TEXT NOT NULL,
	interval_ns BIGINT NOT NULL,
	next_due    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS attempts (
	id          TEXT PRIMARY KEY,
	sender      TEXT NOT NULL,
	receiver    TEXT NOT NULL,
	amount      NUMERIC NOT NULL,
	message     TEXT NOT NULL,
	state       TEXT NOT NULL,
	hash        TEXT NOT NULL,
	error       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);`

// Postgres implements a connection to a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection' and makes sure the tables
// exist.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if _, err = db.ExecContext(ctx, schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot create schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close will close any database connection. Must be called at termination time.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// SaveAccount inserts or replaces an account.
func (p *Postgres) SaveAccount(ctx context.Context, a store.Account) error {
	if a.ID == "" {
		return store.ErrNoID
	}

	_, err := p.db.ExecContext(ctx, `INSERT INTO accounts (id, address, credential, balance, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET address = $2, credential = $3, balance = $4, updated_at = $5`,
		a.ID, a.Address, a.Credential, a.Balance, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not save account %s: %w", a.ID, err)
	}

	return nil
}

// SavePayment inserts or replaces a payment.
func (p *Postgres) SavePayment(ctx context.Context, pay store.Payment) error {
	if pay.ID == "" {
		return store.ErrNoID
	}

	_, err := p.db.ExecContext(ctx, `INSERT INTO payments (id, seq, sender, receiver, amount, message, hash, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET seq = $2, sender = $3, receiver = $4, amount = $5, message = $6, hash = $7,
		ts = $8`,
		pay.ID, pay.Seq, pay.From, pay.To, pay.Amount, pay.Message, pay.Hash, pay.Timestamp)
	if err != nil {
		return fmt.Errorf("could not save payment %s: %w", pay.ID, err)
	}

	return nil
}

// SaveRecurring inserts or replaces a recurring payment.
func (p *Postgres) SaveRecurring(ctx context.Context, r store.Recurring) error {
	if r.ID == "" {
		return store.ErrNoID
	}

	_, err := p.db.ExecContext(ctx, `INSERT INTO recurring (id, seq, sender, receiver, amount, message, interval_ns,
		next_due) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET seq = $2, sender = $3, receiver = $4, amount = $5, message = $6,
		interval_ns = $7, next_due = $8`,
		r.ID, r.Seq, r.From, r.To, r.Amount, r.Message, int64(r.Interval), r.NextDue)
	if err != nil {
		return fmt.Errorf("could not save recurring %s: %w", r.ID, err)
	}

	return nil
}

// SaveAttempt inserts or replaces an attempt.
func (p *Postgres) SaveAttempt(ctx context.Context, a store.Attempt) error {
	if a.ID == "" {
		return store.ErrNoID
	}

	_, err := p.db.ExecContext(ctx, `INSERT INTO attempts (id, sender, receiver, amount, message, state, hash, error,
		created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET state = $6, hash = $7, error = $8, updated_at = $10`,
		a.ID, a.From, a.To, a.Amount, a.Message, a.State, a.Hash, a.Error, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not save attempt %s: %w", a.ID, err)
	}

	return nil
}

// Attempts returns the attempts in state, oldest first.
func (p *Postgres) Attempts(ctx context.Context, state string) ([]store.Attempt, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, sender, receiver, amount, message, state, hash, error, created_at,
		updated_at FROM attempts WHERE $1 = '' OR state = $1 ORDER BY created_at`, state)
	if err != nil {
		return nil, fmt.Errorf("could not query attempts: %w", err)
	}
	defer rows.Close()

	r := []store.Attempt{}

	for rows.Next() {
		var a store.Attempt
		if err = rows.Scan(&a.ID, &a.From, &a.To, &a.Amount, &a.Message, &a.State, &a.Hash, &a.Error, &a.CreatedAt,
			&a.UpdatedAt); err != nil {
			return nil, err
		}

		r = append(r, a)
	}

	return r, rows.Err()
}

// Load returns everything saved.
func (p *Postgres) Load(ctx context.Context) (s store.Snapshot, err error) {
	if s.Accounts, err = p.accounts(ctx); err != nil {
		return
	}

	if s.Payments, err = p.payments(ctx); err != nil {
		return
	}

	if s.Recurring, err = p.recurring(ctx); err != nil {
		return
	}

	s.Attempts, err = p.Attempts(ctx, "")

	return
}

func (p *Postgres) accounts(ctx context.Context) ([]store.Account, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, address, credential, balance, updated_at FROM accounts
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("could not query accounts: %w", err)
	}
	defer rows.Close()

	var r []store.Account

	for rows.Next() {
		var a store.Account
		if err = rows.Scan(&a.ID, &a.Address, &a.Credential, &a.Balance, &a.UpdatedAt); err != nil {
			return nil, err
		}

		r = append(r, a)
	}

	return r, rows.Err()
}

func (p *Postgres) payments(ctx context.Context) ([]store.Payment, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, seq, sender, receiver, amount, message, hash, ts FROM payments
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("could not query payments: %w", err)
	}
	defer rows.Close()

	var r []store.Payment

	for rows.Next() {
		var pay store.Payment
		if err = rows.Scan(&pay.ID, &pay.Seq, &pay.From, &pay.To, &pay.Amount, &pay.Message, &pay.Hash,
			&pay.Timestamp); err != nil {
			return nil, err
		}

		r = append(r, pay)
	}

	return r, rows.Err()
}

func (p *Postgres) recurring(ctx context.Context) ([]store.Recurring, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, seq, sender, receiver, amount, message, interval_ns, next_due
		FROM recurring ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("could not query recurring: %w", err)
	}
	defer rows.Close()

	var r []store.Recurring

	for rows.Next() {
		var (
			rec store.Recurring
			ns  int64
		)

		if err = rows.Scan(&rec.ID, &rec.Seq, &rec.From, &rec.To, &rec.Amount, &rec.Message, &ns,
			&rec.NextDue); err != nil {
			return nil, err
		}

		rec.Interval = time.Duration(ns)
		r = append(r, rec)
	}

	return r, rows.Err()
}

// Compile-time check: ensure Postgres implements store.DB.
var _ store.DB = (*Postgres)(nil)
