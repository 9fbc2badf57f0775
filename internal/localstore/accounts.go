package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// InsertAccount inserts a new locally-created account. The row is written
// dirty (synced = 0) so the next push sweep uploads it. A colliding id fails
// with DuplicateKeyError.
func (s *Store) InsertAccount(ctx context.Context, userID string, a domain.Account) error {
	exists, err := s.rowExists(ctx, "accounts", a.ID)
	if err != nil {
		return fmt.Errorf("InsertAccount: %w", err)
	}
	if exists {
		return &domain.DuplicateKeyError{ID: a.ID}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, initial_balance, current_balance, color, icon, created_at, synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		a.ID, userID, a.Name, a.InitialBalance.String(), a.CurrentBalance.String(),
		a.Color, a.Icon, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("InsertAccount: inserting %s: %w", a.ID, err)
	}
	return nil
}

// UpdateAccount overwrites the business fields of an existing account and
// marks it dirty. The created_at and user_id columns are immutable.
func (s *Store) UpdateAccount(ctx context.Context, a domain.Account) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts
		 SET name = ?, initial_balance = ?, current_balance = ?, color = ?, icon = ?, synced = 0
		 WHERE id = ?`,
		a.Name, a.InitialBalance.String(), a.CurrentBalance.String(), a.Color, a.Icon, a.ID)
	if err != nil {
		return fmt.Errorf("UpdateAccount: updating %s: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.AccountNotFoundError{AccountID: a.ID}
	}
	return nil
}

// UpsertAccount inserts or replaces an account keyed by id. When
// originIsRemote is true the row is stored clean (synced = 1) because it now
// matches remote authoritative state; otherwise it is stored dirty.
func (s *Store) UpsertAccount(ctx context.Context, userID string, a domain.Account, originIsRemote bool) error {
	synced := boolToInt(originIsRemote)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, initial_balance, current_balance, color, icon, created_at, synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   initial_balance = excluded.initial_balance,
		   current_balance = excluded.current_balance,
		   color = excluded.color,
		   icon = excluded.icon,
		   synced = excluded.synced`,
		a.ID, userID, a.Name, a.InitialBalance.String(), a.CurrentBalance.String(),
		a.Color, a.Icon, a.CreatedAt, synced)
	if err != nil {
		return fmt.Errorf("UpsertAccount: upserting %s: %w", a.ID, err)
	}
	return nil
}

// Accounts returns all accounts for the user, ordered by creation time
// ascending.
func (s *Store) Accounts(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, initial_balance, current_balance, color, icon, created_at, synced
		 FROM accounts WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("Accounts: querying: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// AccountByID returns a single account, or AccountNotFoundError.
func (s *Store) AccountByID(ctx context.Context, id string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, initial_balance, current_balance, color, icon, created_at, synced
		 FROM accounts WHERE id = ?`, id)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.AccountNotFoundError{AccountID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("AccountByID: %w", err)
	}
	return a, nil
}

// UnsyncedAccounts returns all dirty accounts for the user. Used exclusively
// by the sync engine.
func (s *Store) UnsyncedAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, initial_balance, current_balance, color, icon, created_at, synced
		 FROM accounts WHERE user_id = ? AND synced = 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("UnsyncedAccounts: querying: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// MarkAccountSynced flips the synced bit to 1 without touching business
// fields. Call only after a confirmed successful remote write.
func (s *Store) MarkAccountSynced(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("MarkAccountSynced: %s: %w", id, err)
	}
	return nil
}

// DeleteAccount removes the account and every transaction referencing it in a
// single database transaction, so no orphan transactions can remain.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteAccount: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?`, id); err != nil {
		return fmt.Errorf("DeleteAccount: deleting transactions of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("DeleteAccount: deleting %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteAccount: commit: %w", err)
	}
	return nil
}

// ApplyBalanceDelta adds delta to the account's current balance and marks the
// account dirty. It is a delta operator, not a recomputation: the caller must
// apply it exactly once per logical event.
func (s *Store) ApplyBalanceDelta(ctx context.Context, accountID string, delta decimal.Decimal) error {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT current_balance FROM accounts WHERE id = ?`, accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.AccountNotFoundError{AccountID: accountID}
	}
	if err != nil {
		return fmt.Errorf("ApplyBalanceDelta: reading balance of %s: %w", accountID, err)
	}

	current, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("ApplyBalanceDelta: malformed balance %q on %s: %w", raw, accountID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE accounts SET current_balance = ?, synced = 0 WHERE id = ?`,
		current.Add(delta).String(), accountID)
	if err != nil {
		return fmt.Errorf("ApplyBalanceDelta: writing balance of %s: %w", accountID, err)
	}
	return nil
}

func (s *Store) rowExists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s row %s: %w", table, id, err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (*domain.Account, error) {
	var (
		a              domain.Account
		initialRaw     string
		currentRaw     string
		syncedInt      int
	)
	if err := r.Scan(&a.ID, &a.Name, &initialRaw, &currentRaw, &a.Color, &a.Icon, &a.CreatedAt, &syncedInt); err != nil {
		return nil, err
	}

	var err error
	if a.InitialBalance, err = decimal.NewFromString(initialRaw); err != nil {
		return nil, fmt.Errorf("malformed initial_balance %q on %s: %w", initialRaw, a.ID, err)
	}
	if a.CurrentBalance, err = decimal.NewFromString(currentRaw); err != nil {
		return nil, fmt.Errorf("malformed current_balance %q on %s: %w", currentRaw, a.ID, err)
	}
	a.Synced = syncedInt == 1
	return &a, nil
}

func scanAccounts(rows *sql.Rows) ([]domain.Account, error) {
	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}
