package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionType describes the direction of a transaction's effect on its
// account balance. The sign lives here, never in Amount.
type TransactionType string

const (
	TypeIn  TransactionType = "in"
	TypeOut TransactionType = "out"
)

// ParseTransactionType validates a raw string against the two known types.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TypeIn:
		return TypeIn, nil
	case TypeOut:
		return TypeOut, nil
	}
	return "", fmt.Errorf("ParseTransactionType: unknown type %q", s)
}

// Transaction is a single money movement against exactly one account.
// Amount is always positive; Date is the user-assigned transaction time and is
// distinct from CreatedAt.
type Transaction struct {
	ID        string
	AccountID string
	Amount    decimal.Decimal
	Type      TransactionType
	Category  string // optional
	Note      string // optional
	Date      int64  // epoch milliseconds, user-assigned
	CreatedAt int64
	UpdatedAt int64
	Synced    bool
}

// Effect returns the signed balance delta this transaction contributes to its
// account: +Amount for "in", -Amount for "out".
func (t Transaction) Effect() decimal.Decimal {
	if t.Type == TypeIn {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Validate checks the business invariants that hold for every stored transaction.
func (t Transaction) Validate() error {
	if t.AccountID == "" {
		return fmt.Errorf("transaction %s: missing account id", t.ID)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction %s: amount must be positive, got %s", t.ID, t.Amount)
	}
	if t.Type != TypeIn && t.Type != TypeOut {
		return fmt.Errorf("transaction %s: unknown type %q", t.ID, t.Type)
	}
	return nil
}
