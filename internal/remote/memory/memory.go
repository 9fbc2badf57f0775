// Package memory is an in-memory implementation of remote.Store. It is safe
// for concurrent use and loses all data on process exit; it exists for tests
// and for running the tracker with no remote backend configured.
package memory

import (
	"context"
	"sync"

	"github.com/garanaibrahim7/expense-manager/internal/domain"
)

// Store keeps per-user account and transaction documents in maps.
// FailPuts / FailFetches / FailDeletes inject faults for sync engine tests.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]map[string]domain.Account
	transactions map[string]map[string]domain.Transaction

	FailPuts    error
	FailFetches error
	FailDeletes error
}

// NewStore creates an empty in-memory remote store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]map[string]domain.Account),
		transactions: make(map[string]map[string]domain.Transaction),
	}
}

// FetchAccounts implements remote.Store.
func (s *Store) FetchAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	if s.FailFetches != nil {
		return nil, s.FailFetches
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Account
	for _, a := range s.accounts[userID] {
		out = append(out, a)
	}
	return out, nil
}

// FetchTransactions implements remote.Store.
func (s *Store) FetchTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	if s.FailFetches != nil {
		return nil, s.FailFetches
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, t := range s.transactions[userID] {
		out = append(out, t)
	}
	return out, nil
}

// PutAccount implements remote.Store. The stored copy drops the local-only
// synced bit, mirroring the document schema.
func (s *Store) PutAccount(ctx context.Context, userID string, a domain.Account) error {
	if s.FailPuts != nil {
		return s.FailPuts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accounts[userID] == nil {
		s.accounts[userID] = make(map[string]domain.Account)
	}
	a.Synced = false
	s.accounts[userID][a.ID] = a
	return nil
}

// PutTransaction implements remote.Store.
func (s *Store) PutTransaction(ctx context.Context, userID string, t domain.Transaction) error {
	if s.FailPuts != nil {
		return s.FailPuts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transactions[userID] == nil {
		s.transactions[userID] = make(map[string]domain.Transaction)
	}
	t.Synced = false
	s.transactions[userID][t.ID] = t
	return nil
}

// DeleteAccount implements remote.Store. Deleting a missing document is not
// an error, matching document-store semantics.
func (s *Store) DeleteAccount(ctx context.Context, userID, id string) error {
	if s.FailDeletes != nil {
		return s.FailDeletes
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.accounts[userID], id)
	return nil
}

// DeleteTransaction implements remote.Store.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if s.FailDeletes != nil {
		return s.FailDeletes
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.transactions[userID], id)
	return nil
}

// AccountCount reports how many account documents the user has. Test helper.
func (s *Store) AccountCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts[userID])
}

// TransactionCount reports how many transaction documents the user has.
func (s *Store) TransactionCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions[userID])
}

// Account returns a stored account document and whether it exists.
func (s *Store) Account(userID, id string) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[userID][id]
	return a, ok
}

// Transaction returns a stored transaction document and whether it exists.
func (s *Store) Transaction(userID, id string) (domain.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[userID][id]
	return t, ok
}
