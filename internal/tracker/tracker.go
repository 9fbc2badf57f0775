// Package tracker is the orchestrating service behind every user action:
// account and transaction mutations, snapshot reads, reports and sync
// triggers. Each mutation updates the ledger and the local store
// synchronously (the authoritative write), then hands the dirty rows to the
// sync engine best-effort.
//
// Mutations must be sequenced by the caller: the service holds no locks, and
// the balance invariant rests on no two mutations against the same account
// interleaving.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garanaibrahim7/expense-manager/internal/analysis"
	"github.com/garanaibrahim7/expense-manager/internal/connectivity"
	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/garanaibrahim7/expense-manager/internal/ledger"
	"github.com/garanaibrahim7/expense-manager/internal/localstore"
	"github.com/garanaibrahim7/expense-manager/internal/logger"
	"github.com/garanaibrahim7/expense-manager/internal/syncengine"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotAuthenticated is returned when a mutation is attempted with no
// signed-in user.
var ErrNotAuthenticated = errors.New("user not authenticated")

// Auth is the external authentication collaborator. The tracker only ever
// asks who the current user is; credential flows live outside this system.
type Auth interface {
	CurrentUserID() string
	IsAuthenticated() bool
}

// StaticAuth is a fixed-user Auth used by the CLI binaries and tests.
type StaticAuth struct {
	UserID string
}

func (a StaticAuth) CurrentUserID() string { return a.UserID }
func (a StaticAuth) IsAuthenticated() bool { return a.UserID != "" }

// Service wires the local store, ledger, sync engine and connectivity gate
// behind the user-facing operations.
type Service struct {
	store  *localstore.Store
	ledger *ledger.Ledger
	engine *syncengine.Engine
	gate   connectivity.Gate
	auth   Auth
}

// New creates the service. All collaborators are constructed by the caller;
// the service owns none of their lifecycles.
func New(store *localstore.Store, led *ledger.Ledger, engine *syncengine.Engine, gate connectivity.Gate, auth Auth) *Service {
	return &Service{store: store, ledger: led, engine: engine, gate: gate, auth: auth}
}

func (s *Service) userID() (string, error) {
	if !s.auth.IsAuthenticated() {
		return "", ErrNotAuthenticated
	}
	return s.auth.CurrentUserID(), nil
}

// Bootstrap runs the login-time sequence: the one-time initial pull (only
// against an empty local store) followed by a best-effort push sweep.
func (s *Service) Bootstrap(ctx context.Context) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	if err := s.engine.InitialPull(ctx, userID); err != nil {
		return fmt.Errorf("Bootstrap: %w", err)
	}
	s.pushBestEffort(ctx, userID)
	return nil
}

// NewAccount carries the caller-supplied fields of an account creation.
type NewAccount struct {
	Name           string
	InitialBalance decimal.Decimal
	Color          string
	Icon           string
}

// CreateAccount creates an account whose current balance starts at the
// initial balance.
func (s *Service) CreateAccount(ctx context.Context, in NewAccount) (*domain.Account, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}

	a := domain.Account{
		ID:             uuid.NewString(),
		Name:           in.Name,
		InitialBalance: in.InitialBalance,
		CurrentBalance: in.InitialBalance,
		Color:          in.Color,
		Icon:           in.Icon,
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := s.store.InsertAccount(ctx, userID, a); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	s.pushBestEffort(ctx, userID)
	return &a, nil
}

// UpdateAccount overwrites an account's business fields and marks it dirty.
func (s *Service) UpdateAccount(ctx context.Context, a domain.Account) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return fmt.Errorf("UpdateAccount: %w", err)
	}
	s.pushBestEffort(ctx, userID)
	return nil
}

// DeleteAccount removes the account and all of its transactions locally, then
// attempts the best-effort remote delete. Unlike transaction deletes, account
// deletes carry no connectivity precondition; offline deletes leave the
// remote document behind permanently.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	s.engine.PropagateAccountDeletion(ctx, userID, id)
	return nil
}

// NewTransaction carries the caller-supplied fields of a transaction
// creation. A zero Date defaults to now.
type NewTransaction struct {
	AccountID string
	Amount    decimal.Decimal
	Type      domain.TransactionType
	Category  string
	Note      string
	Date      int64
}

// AddTransaction writes the transaction row, applies its effect to the owning
// account, and pushes best-effort. If the account disappears between the row
// write and the effect application (a concurrent delete), the row write is
// compensated so the aborted operation leaves no transaction behind.
func (s *Service) AddTransaction(ctx context.Context, in NewTransaction) (*domain.Transaction, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	t := domain.Transaction{
		ID:        uuid.NewString(),
		AccountID: in.AccountID,
		Amount:    in.Amount,
		Type:      in.Type,
		Category:  in.Category,
		Note:      in.Note,
		Date:      in.Date,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Date == 0 {
		t.Date = now
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("AddTransaction: %w", err)
	}

	if err := s.store.InsertTransaction(ctx, userID, t); err != nil {
		return nil, fmt.Errorf("AddTransaction: %w", err)
	}
	if err := s.ledger.Apply(ctx, t.AccountID, t.Amount, t.Type); err != nil {
		if delErr := s.store.DeleteTransaction(ctx, t.ID); delErr != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(delErr).
				Str("transaction_id", t.ID).
				Msg("Failed to compensate aborted transaction insert")
		}
		return nil, fmt.Errorf("AddTransaction: applying effect: %w", err)
	}

	s.pushBestEffort(ctx, userID)
	return &t, nil
}

// UpdateTransaction edits an existing transaction. The prior effect is always
// reverted and the new effect applied, even when only note or category
// changed; the waste is accepted to keep a single code path that can never
// miss an amount or type change.
func (s *Service) UpdateTransaction(ctx context.Context, t domain.Transaction) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}

	old, err := s.store.TransactionByID(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if old == nil {
		return fmt.Errorf("UpdateTransaction: transaction %s does not exist", t.ID)
	}

	if err := s.ledger.Revert(ctx, old.AccountID, old.Amount, old.Type); err != nil {
		return fmt.Errorf("UpdateTransaction: reverting prior effect: %w", err)
	}

	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now().UnixMilli()
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		// Restore the reverted effect so the abort leaves balances intact.
		if applyErr := s.ledger.Apply(ctx, old.AccountID, old.Amount, old.Type); applyErr != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(applyErr).
				Str("transaction_id", t.ID).
				Msg("Failed to restore prior effect after aborted update")
		}
		return fmt.Errorf("UpdateTransaction: %w", err)
	}

	if err := s.ledger.Apply(ctx, t.AccountID, t.Amount, t.Type); err != nil {
		return fmt.Errorf("UpdateTransaction: applying new effect: %w", err)
	}

	s.pushBestEffort(ctx, userID)
	return nil
}

// DeleteTransaction removes a transaction and reverses its effect on the
// owning account. Deleting requires connectivity: offline, the operation
// fails with OfflineDeleteError and neither the row nor the balance changes.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	if !s.gate.Online() {
		return &domain.OfflineDeleteError{}
	}

	old, err := s.store.TransactionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if old == nil {
		return fmt.Errorf("DeleteTransaction: transaction %s does not exist", id)
	}

	if err := s.ledger.Revert(ctx, old.AccountID, old.Amount, old.Type); err != nil {
		return fmt.Errorf("DeleteTransaction: reverting effect: %w", err)
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	s.engine.PropagateTransactionDeletion(ctx, userID, id)
	s.pushBestEffort(ctx, userID)
	return nil
}

// Accounts returns the current local snapshot of the user's accounts.
func (s *Service) Accounts(ctx context.Context) ([]domain.Account, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}
	return s.store.Accounts(ctx, userID)
}

// Transactions returns the current local snapshot of the user's transactions.
func (s *Service) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, userID)
}

// Sync runs the explicit bidirectional reconciliation.
func (s *Service) Sync(ctx context.Context) (syncengine.SyncResult, error) {
	userID, err := s.userID()
	if err != nil {
		return syncengine.SyncResult{}, err
	}
	return s.engine.SyncAll(ctx, userID)
}

// Report computes an analysis report over the current local snapshot.
func (s *Service) Report(ctx context.Context, filter domain.AnalysisFilter) (*domain.Report, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}

	accounts, err := s.store.Accounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Report: %w", err)
	}
	transactions, err := s.store.Transactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Report: %w", err)
	}

	report := analysis.Summarize(accounts, transactions, filter, time.Now())
	return &report, nil
}

// pushBestEffort runs a push sweep after a successful mutation when online.
// Sweep errors never surface to the mutation's caller.
func (s *Service) pushBestEffort(ctx context.Context, userID string) {
	if !s.gate.Online() {
		return
	}
	if _, err := s.engine.PushSweep(ctx, userID); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Best-effort push sweep failed")
	}
}
