// Package ledger keeps each account's running balance consistent with its
// transaction set. Balances are maintained incrementally: every transaction
// insert, edit or delete applies a signed delta to the owning account instead
// of recomputing the aggregate from scratch.
package ledger

import (
	"context"

	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// BalanceStore is the slice of the local store the ledger writes through.
type BalanceStore interface {
	ApplyBalanceDelta(ctx context.Context, accountID string, delta decimal.Decimal) error
}

// Ledger applies transaction effects to account balances. It holds no state
// of its own; correctness rests on each logical event being applied exactly
// once by the orchestrating mutation.
type Ledger struct {
	store BalanceStore
}

// New creates a ledger writing through the given store.
func New(store BalanceStore) *Ledger {
	return &Ledger{store: store}
}

// Apply adds the effect of (amount, type) to the account balance:
// +amount for "in", -amount for "out". The store marks the account dirty.
// A missing account surfaces as AccountNotFoundError.
func (l *Ledger) Apply(ctx context.Context, accountID string, amount decimal.Decimal, typ domain.TransactionType) error {
	return l.store.ApplyBalanceDelta(ctx, accountID, effect(amount, typ))
}

// Revert undoes a previously applied effect. Used before applying the new
// effect on an edit, and before removing the row on a delete. An edit always
// goes revert-then-apply even when only note or category changed, so a real
// amount or type change can never be missed by a shortcut path.
func (l *Ledger) Revert(ctx context.Context, accountID string, amount decimal.Decimal, typ domain.TransactionType) error {
	return l.store.ApplyBalanceDelta(ctx, accountID, effect(amount, typ).Neg())
}

func effect(amount decimal.Decimal, typ domain.TransactionType) decimal.Decimal {
	if typ == domain.TypeIn {
		return amount
	}
	return amount.Neg()
}
