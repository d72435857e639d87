// Package user provides the User entity and the credit Ledger port.
// Credits are the consumable quota: one credit authorizes one generated
// clip. The ledger guarantees a balance never goes negative.
package user

import (
	"context"
	"errors"
	"time"
)

// Static errors for ledger operations.
var (
	// ErrUserNotFound is returned when a user cannot be found by ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientCredits is returned when a debit would drive the
	// balance negative.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrNegativeAmount is returned when a debit or grant amount is negative.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// User represents an account holding a credit balance.
type User struct {
	// ID is the unique identifier for this user.
	ID string
	// Credits is the current balance. Never negative.
	Credits int
	// CreatedAt is when the account was first seen by the ledger.
	CreatedAt time.Time
}

// Ledger defines the interface for reading and mutating credit balances.
// The workflow only ever debits what it just produced, so a correctly
// sequenced caller never observes ErrInsufficientCredits.
type Ledger interface {
	// Credits returns the current balance for a user.
	// Returns ErrUserNotFound if the user does not exist.
	Credits(ctx context.Context, userID string) (int, error)

	// Debit decreases the balance by amount. A zero amount is a no-op.
	// Returns ErrInsufficientCredits if the balance would go negative.
	Debit(ctx context.Context, userID string, amount int) error

	// Grant increases the balance by amount, creating the account if it
	// does not exist yet. Used for the signup grant and paid top-ups.
	Grant(ctx context.Context, userID string, amount int) error
}
