// Package localstore is the durable, offline-authoritative row store for
// accounts and transactions. Every row carries a synced bit used by the sync
// engine as a dirty flag; all writes that touch business fields clear it unless
// the write originates from a remote pull.
package localstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
PRAGMA journal_mode = WAL;

CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY NOT NULL,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	initial_balance TEXT NOT NULL,
	current_balance TEXT NOT NULL,
	color TEXT NOT NULL,
	icon TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	synced INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY NOT NULL,
	user_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	amount TEXT NOT NULL,
	type TEXT NOT NULL,
	category TEXT,
	note TEXT,
	date INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	synced INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (account_id) REFERENCES accounts (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_accounts_synced ON accounts(synced);
CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_transactions_synced ON transactions(synced);
`

// Store wraps a SQLite handle with the schema above. It is constructed
// explicitly and closed by the owner; there is no package-level instance.
//
// The connection pool is capped at one connection: mutations are sequenced by
// the caller, and a single connection makes ":memory:" databases usable in
// tests.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path and bootstraps
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("Open: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Empty reports whether the store holds no accounts and no transactions for
// the user. The sync engine uses it to decide whether the one-time initial
// pull applies.
func (s *Store) Empty(ctx context.Context, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM accounts WHERE user_id = ?) +
		        (SELECT COUNT(*) FROM transactions WHERE user_id = ?)`,
		userID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("Empty: counting rows: %w", err)
	}
	return n == 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
