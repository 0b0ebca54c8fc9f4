package payment

import "errors"

// Errors returned by the payment core. They are wrapped with context, compare them with errors.Is.
var (
	ErrNotFound            = errors.New("account not found")
	ErrAlreadyExists       = errors.New("account already exists")
	ErrInvalidID           = errors.New("invalid account identifier")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrInvalidKey          = errors.New("invalid receiver key")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidInterval     = errors.New("interval must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrSweepInProgress     = errors.New("sweep already in progress")
)
