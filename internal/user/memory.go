package user

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryLedger implements Ledger.
var _ Ledger = (*MemoryLedger)(nil)

// MemoryLedger is an in-memory implementation of Ledger.
// Suitable for development and testing.
type MemoryLedger struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryLedger creates a new in-memory credit ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		users: make(map[string]*User),
	}
}

// Credits returns the current balance for a user.
func (l *MemoryLedger) Credits(_ context.Context, userID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u, ok := l.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.Credits, nil
}

// Debit decreases the balance by amount, never below zero.
func (l *MemoryLedger) Debit(_ context.Context, userID string, amount int) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if u.Credits < amount {
		return ErrInsufficientCredits
	}
	u.Credits -= amount
	return nil
}

// Grant increases the balance by amount, creating the account if needed.
func (l *MemoryLedger) Grant(_ context.Context, userID string, amount int) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		u = &User{ID: userID, CreatedAt: time.Now().UTC()}
		l.users[userID] = u
	}
	u.Credits += amount
	return nil
}
