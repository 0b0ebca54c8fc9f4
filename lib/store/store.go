// Package store defines the interface for database implementations used to persist the payment core.
//
// Account credentials are stored as registered, see Account. The drivers do not encrypt them.
package store

import (
	"context"
	"errors"
)

// DB defines required methods to journal the payment core. Save methods insert or replace by ID.
type DB interface {
	SaveAccount(ctx context.Context, a Account) error
	SavePayment(ctx context.Context, p Payment) error
	SaveRecurring(ctx context.Context, r Recurring) error
	SaveAttempt(ctx context.Context, a Attempt) error
	// Attempts returns the attempts in the given state, all of them if state is empty, oldest first.
	Attempts(ctx context.Context, state string) ([]Attempt, error)
	// Load returns everything saved.
	Load(ctx context.Context) (Snapshot, error)
	Close() error
}

// Errors returned
var (
	ErrNoID = errors.New("record has no id")
)
