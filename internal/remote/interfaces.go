// Package remote adapts an opaque per-user document store holding the remote
// copy of accounts and transactions. Documents live at
// users/{userId}/accounts/{id} and users/{userId}/transactions/{id} and carry
// the business fields only; the local-only synced bit never crosses this
// boundary.
package remote

import (
	"context"

	"github.com/garanaibrahim7/expense-manager/internal/domain"
)

// Store is the remote document store consumed by the sync engine. Put is a
// full-document merge-write keyed by id (idempotent upsert), fetch is a
// full-collection read, delete is removal by id. Implementations enable
// mocking in sync engine tests.
type Store interface {
	// FetchAccounts reads every account document for the user.
	FetchAccounts(ctx context.Context, userID string) ([]domain.Account, error)

	// FetchTransactions reads every transaction document for the user.
	FetchTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)

	// PutAccount upserts one account document, overwriting remote fields
	// with the local copy.
	PutAccount(ctx context.Context, userID string, a domain.Account) error

	// PutTransaction upserts one transaction document.
	PutTransaction(ctx context.Context, userID string, t domain.Transaction) error

	// DeleteAccount removes one account document by id.
	DeleteAccount(ctx context.Context, userID, id string) error

	// DeleteTransaction removes one transaction document by id.
	DeleteTransaction(ctx context.Context, userID, id string) error
}
