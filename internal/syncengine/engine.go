// Package syncengine reconciles the local store with the remote document
// store. It pulls remote rows into an empty local store on first login, pushes
// locally-dirty rows whenever connectivity allows, and performs a heavier
// user-invoked bidirectional sync. All remote writes are idempotent upserts
// and every markSynced is monotonic, so overlapping sweeps are tolerated
// without locking (at-least-once upload semantics).
package syncengine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/garanaibrahim7/expense-manager/internal/connectivity"
	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/garanaibrahim7/expense-manager/internal/logger"
	"github.com/garanaibrahim7/expense-manager/internal/remote"
)

// LocalStore is the slice of the local store the engine reads and writes.
type LocalStore interface {
	Empty(ctx context.Context, userID string) (bool, error)
	UpsertAccount(ctx context.Context, userID string, a domain.Account, originIsRemote bool) error
	UpsertTransaction(ctx context.Context, userID string, t domain.Transaction, originIsRemote bool) error
	UnsyncedAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	UnsyncedTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	MarkAccountSynced(ctx context.Context, id string) error
	MarkTransactionSynced(ctx context.Context, id string) error
}

// State is the engine's coarse activity indicator, for observability only.
type State int32

const (
	StateIdle State = iota
	StatePulling
	StatePushing
)

func (s State) String() string {
	switch s {
	case StatePulling:
		return "pulling"
	case StatePushing:
		return "pushing"
	default:
		return "idle"
	}
}

// Engine drives reconciliation between one local store and one remote store.
type Engine struct {
	store  LocalStore
	remote remote.Store
	gate   connectivity.Gate

	state atomic.Int32
}

// New creates an engine over the given collaborators.
func New(store LocalStore, rs remote.Store, gate connectivity.Gate) *Engine {
	return &Engine{store: store, remote: rs, gate: gate}
}

// State reports the engine's current activity. Overlapping sweeps make this a
// best-effort snapshot, never a synchronization primitive.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// SweepResult counts the outcome of one push sweep.
type SweepResult struct {
	AccountsPushed     int
	TransactionsPushed int
	Failed             int
}

// SyncResult counts the outcome of one bidirectional sync.
type SyncResult struct {
	Downloaded int
	Uploaded   int
	Failed     int
}

// InitialPull runs the one-time login-time download. It executes only when
// the local store holds zero accounts AND zero transactions for the user;
// any pre-existing local row suppresses it entirely. The engine never merges
// a partially-populated local store against remote on login.
func (e *Engine) InitialPull(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx)

	empty, err := e.store.Empty(ctx, userID)
	if err != nil {
		return fmt.Errorf("InitialPull: checking local store: %w", err)
	}
	if !empty {
		log.Debug().Str("user_id", userID).Msg("Local store not empty, skipping initial pull")
		return nil
	}

	e.state.Store(int32(StatePulling))
	defer e.state.Store(int32(StateIdle))

	log.Info().Str("user_id", userID).Msg("Local store empty, pulling remote backup")
	downloaded, err := e.pullAll(ctx, userID)
	if err != nil {
		return fmt.Errorf("InitialPull: %w", err)
	}

	log.Info().Int("downloaded", downloaded).Msg("Initial pull completed")
	return nil
}

// PushSweep uploads every locally-dirty row, accounts fully before
// transactions. It is a no-op when offline. Per-row failures are logged and
// skipped; the row stays dirty and is retried on the next natural trigger.
func (e *Engine) PushSweep(ctx context.Context, userID string) (SweepResult, error) {
	log := logger.FromContext(ctx)
	var res SweepResult

	if !e.gate.Online() {
		log.Debug().Str("user_id", userID).Msg("Offline, skipping push sweep")
		return res, nil
	}

	e.state.Store(int32(StatePushing))
	defer e.state.Store(int32(StateIdle))

	accounts, err := e.store.UnsyncedAccounts(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("PushSweep: reading dirty accounts: %w", err)
	}
	for _, a := range accounts {
		if err := e.remote.PutAccount(ctx, userID, a); err != nil {
			uploadErr := &domain.RemoteUploadError{Kind: "account", ID: a.ID, Err: err}
			log.Warn().Err(uploadErr).Str("account_id", a.ID).Msg("Failed to upload account, will retry next sweep")
			res.Failed++
			continue
		}
		if err := e.store.MarkAccountSynced(ctx, a.ID); err != nil {
			log.Warn().Err(err).Str("account_id", a.ID).Msg("Uploaded account but failed to mark synced")
			res.Failed++
			continue
		}
		res.AccountsPushed++
	}

	transactions, err := e.store.UnsyncedTransactions(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("PushSweep: reading dirty transactions: %w", err)
	}
	for _, t := range transactions {
		if err := e.remote.PutTransaction(ctx, userID, t); err != nil {
			uploadErr := &domain.RemoteUploadError{Kind: "transaction", ID: t.ID, Err: err}
			log.Warn().Err(uploadErr).Str("transaction_id", t.ID).Msg("Failed to upload transaction, will retry next sweep")
			res.Failed++
			continue
		}
		if err := e.store.MarkTransactionSynced(ctx, t.ID); err != nil {
			log.Warn().Err(err).Str("transaction_id", t.ID).Msg("Uploaded transaction but failed to mark synced")
			res.Failed++
			continue
		}
		res.TransactionsPushed++
	}

	log.Info().
		Int("accounts", res.AccountsPushed).
		Int("transactions", res.TransactionsPushed).
		Int("failed", res.Failed).
		Msg("Push sweep completed")
	return res, nil
}

// SyncAll is the explicit, user-invoked full reconciliation: pull and upsert
// ALL remote rows (not just against an empty store), then push every dirty
// local row. The pull overwrites local rows with remote data at row
// granularity; a local edit made after the remote snapshot loses.
func (e *Engine) SyncAll(ctx context.Context, userID string) (SyncResult, error) {
	var res SyncResult

	if !e.gate.Online() {
		return res, fmt.Errorf("SyncAll: no network connection")
	}

	e.state.Store(int32(StatePulling))
	downloaded, err := e.pullAll(ctx, userID)
	e.state.Store(int32(StateIdle))
	res.Downloaded = downloaded
	if err != nil {
		return res, fmt.Errorf("SyncAll: %w", err)
	}

	sweep, err := e.PushSweep(ctx, userID)
	res.Uploaded = sweep.AccountsPushed + sweep.TransactionsPushed
	res.Failed = sweep.Failed
	if err != nil {
		return res, fmt.Errorf("SyncAll: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("downloaded", res.Downloaded).
		Int("uploaded", res.Uploaded).
		Int("failed", res.Failed).
		Msg("Bidirectional sync completed")
	return res, nil
}

// pullAll fetches every remote row for the user and upserts it locally with
// remote origin (synced forced true). Both collections are fetched before
// anything is written: a failed fetch leaves the store untouched, so a
// partially-failed first login keeps the store empty and the initial pull
// retryable. Accounts are upserted before transactions so referential checks
// hold. Per-row upsert failures are logged and skipped.
func (e *Engine) pullAll(ctx context.Context, userID string) (int, error) {
	log := logger.FromContext(ctx)

	accounts, err := e.remote.FetchAccounts(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("pullAll: fetching accounts: %w", err)
	}
	transactions, err := e.remote.FetchTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("pullAll: fetching transactions: %w", err)
	}

	downloaded := 0
	for _, a := range accounts {
		if err := e.store.UpsertAccount(ctx, userID, a, true); err != nil {
			dlErr := &domain.RemoteDownloadError{Kind: "account", ID: a.ID, Err: err}
			log.Warn().Err(dlErr).Str("account_id", a.ID).Msg("Failed to upsert pulled account")
			continue
		}
		downloaded++
	}

	for _, t := range transactions {
		if err := e.store.UpsertTransaction(ctx, userID, t, true); err != nil {
			dlErr := &domain.RemoteDownloadError{Kind: "transaction", ID: t.ID, Err: err}
			log.Warn().Err(dlErr).Str("transaction_id", t.ID).Msg("Failed to upsert pulled transaction")
			continue
		}
		downloaded++
	}

	return downloaded, nil
}

// PropagateAccountDeletion attempts the best-effort remote delete after a
// local account delete. Offline, or on failure, the remote document simply
// stays behind; it is never retried or queued. Remote transaction documents
// of the account are left in place as well, an acknowledged limitation.
func (e *Engine) PropagateAccountDeletion(ctx context.Context, userID, id string) {
	log := logger.FromContext(ctx)

	if !e.gate.Online() {
		log.Debug().Str("account_id", id).Msg("Offline, leaving remote account document behind")
		return
	}
	if err := e.remote.DeleteAccount(ctx, userID, id); err != nil {
		delErr := &domain.RemoteDeleteError{Kind: "account", ID: id, Err: err}
		log.Warn().Err(delErr).Str("account_id", id).Msg("Best-effort remote account delete failed")
	}
}

// PropagateTransactionDeletion attempts the best-effort remote delete after a
// local transaction delete. The caller has already enforced the connectivity
// precondition; failure here is still swallowed.
func (e *Engine) PropagateTransactionDeletion(ctx context.Context, userID, id string) {
	log := logger.FromContext(ctx)

	if !e.gate.Online() {
		log.Debug().Str("transaction_id", id).Msg("Offline, leaving remote transaction document behind")
		return
	}
	if err := e.remote.DeleteTransaction(ctx, userID, id); err != nil {
		delErr := &domain.RemoteDeleteError{Kind: "transaction", ID: id, Err: err}
		log.Warn().Err(delErr).Str("transaction_id", id).Msg("Best-effort remote transaction delete failed")
	}
}
