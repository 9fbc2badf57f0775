package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// InsertTransaction inserts a new locally-created transaction, written dirty.
// A missing owning account fails with ReferentialError; a colliding id fails
// with DuplicateKeyError. The owning account's balance is NOT adjusted here;
// that is the ledger's job.
func (s *Store) InsertTransaction(ctx context.Context, userID string, t domain.Transaction) error {
	ok, err := s.rowExists(ctx, "accounts", t.AccountID)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	if !ok {
		return &domain.ReferentialError{AccountID: t.AccountID}
	}

	exists, err := s.rowExists(ctx, "transactions", t.ID)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	if exists {
		return &domain.DuplicateKeyError{ID: t.ID}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, amount, type, category, note, date, created_at, updated_at, synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		t.ID, userID, t.AccountID, t.Amount.String(), string(t.Type),
		nullable(t.Category), nullable(t.Note), t.Date, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("InsertTransaction: inserting %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTransaction overwrites the business fields of an existing transaction
// and marks it dirty. Balance correction (revert old effect, apply new) is the
// caller's responsibility via the ledger.
func (s *Store) UpdateTransaction(ctx context.Context, t domain.Transaction) error {
	ok, err := s.rowExists(ctx, "accounts", t.AccountID)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if !ok {
		return &domain.ReferentialError{AccountID: t.AccountID}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET account_id = ?, amount = ?, type = ?, category = ?, note = ?, date = ?, updated_at = ?, synced = 0
		 WHERE id = ?`,
		t.AccountID, t.Amount.String(), string(t.Type),
		nullable(t.Category), nullable(t.Note), t.Date, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: updating %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateTransaction: transaction %s does not exist", t.ID)
	}
	return nil
}

// UpsertTransaction inserts or replaces a transaction keyed by id. Remote
// origin forces synced = 1; local origin forces synced = 0. The owning account
// must exist (on remote pulls accounts are always upserted first).
func (s *Store) UpsertTransaction(ctx context.Context, userID string, t domain.Transaction, originIsRemote bool) error {
	ok, err := s.rowExists(ctx, "accounts", t.AccountID)
	if err != nil {
		return fmt.Errorf("UpsertTransaction: %w", err)
	}
	if !ok {
		return &domain.ReferentialError{AccountID: t.AccountID}
	}

	synced := boolToInt(originIsRemote)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, amount, type, category, note, date, created_at, updated_at, synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   account_id = excluded.account_id,
		   amount = excluded.amount,
		   type = excluded.type,
		   category = excluded.category,
		   note = excluded.note,
		   date = excluded.date,
		   updated_at = excluded.updated_at,
		   synced = excluded.synced`,
		t.ID, userID, t.AccountID, t.Amount.String(), string(t.Type),
		nullable(t.Category), nullable(t.Note), t.Date, t.CreatedAt, t.UpdatedAt, synced)
	if err != nil {
		return fmt.Errorf("UpsertTransaction: upserting %s: %w", t.ID, err)
	}
	return nil
}

// Transactions returns all transactions for the user, ordered by the
// user-assigned date descending (newest first).
func (s *Store) Transactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, amount, type, category, note, date, created_at, updated_at, synced
		 FROM transactions WHERE user_id = ? ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("Transactions: querying: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// TransactionByID returns a single transaction, or nil when it does not exist.
func (s *Store) TransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, amount, type, category, note, date, created_at, updated_at, synced
		 FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("TransactionByID: %w", err)
	}
	return t, nil
}

// UnsyncedTransactions returns all dirty transactions for the user. Used
// exclusively by the sync engine.
func (s *Store) UnsyncedTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, amount, type, category, note, date, created_at, updated_at, synced
		 FROM transactions WHERE user_id = ? AND synced = 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("UnsyncedTransactions: querying: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// MarkTransactionSynced flips the synced bit to 1 without touching business
// fields. Call only after a confirmed successful remote write.
func (s *Store) MarkTransactionSynced(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("MarkTransactionSynced: %s: %w", id, err)
	}
	return nil
}

// DeleteTransaction removes a single transaction row. The owning account's
// balance is untouched; the caller reverts the effect through the ledger.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("DeleteTransaction: deleting %s: %w", id, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanTransaction(r rowScanner) (*domain.Transaction, error) {
	var (
		t         domain.Transaction
		amountRaw string
		typeRaw   string
		category  sql.NullString
		note      sql.NullString
		syncedInt int
	)
	if err := r.Scan(&t.ID, &t.AccountID, &amountRaw, &typeRaw, &category, &note,
		&t.Date, &t.CreatedAt, &t.UpdatedAt, &syncedInt); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("malformed amount %q on %s: %w", amountRaw, t.ID, err)
	}
	typ, err := domain.ParseTransactionType(typeRaw)
	if err != nil {
		return nil, fmt.Errorf("row %s: %w", t.ID, err)
	}

	t.Amount = amount
	t.Type = typ
	t.Category = category.String
	t.Note = note.String
	t.Synced = syncedInt == 1
	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txs, nil
}
