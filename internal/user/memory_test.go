package user

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryLedger_GrantAndCredits(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	// Grant creates the account
	if err := ledger.Grant(ctx, "user-1", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, err := ledger.Credits(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 10 {
		t.Errorf("expected balance 10, got %d", balance)
	}

	// Further grants accumulate
	if err := ledger.Grant(ctx, "user-1", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, _ = ledger.Credits(ctx, "user-1")
	if balance != 15 {
		t.Errorf("expected balance 15, got %d", balance)
	}
}

func TestMemoryLedger_Credits_NotFound(t *testing.T) {
	ledger := NewMemoryLedger()

	_, err := ledger.Credits(context.Background(), "nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryLedger_Debit(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	if err := ledger.Grant(ctx, "user-1", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ledger.Debit(ctx, "user-1", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, _ := ledger.Credits(ctx, "user-1")
	if balance != 1 {
		t.Errorf("expected balance 1, got %d", balance)
	}

	// Draining to exactly zero is allowed
	if err := ledger.Debit(ctx, "user-1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, _ = ledger.Credits(ctx, "user-1")
	if balance != 0 {
		t.Errorf("expected balance 0, got %d", balance)
	}
}

func TestMemoryLedger_Debit_Insufficient(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	if err := ledger.Grant(ctx, "user-1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := ledger.Debit(ctx, "user-1", 2)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Errorf("expected ErrInsufficientCredits, got %v", err)
	}

	// The failed debit must not change the balance
	balance, _ := ledger.Credits(ctx, "user-1")
	if balance != 1 {
		t.Errorf("expected balance 1, got %d", balance)
	}
}

func TestMemoryLedger_Debit_Errors(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	if err := ledger.Debit(ctx, "nonexistent", 1); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	_ = ledger.Grant(ctx, "user-1", 1)
	if err := ledger.Debit(ctx, "user-1", -1); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
	if err := ledger.Grant(ctx, "user-1", -1); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}
