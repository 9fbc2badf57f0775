// Package backup exports a user's full local snapshot as JSON, either to a
// local writer or to a GCS bucket. Exports are read-only over the store and
// carry no sync state; restoring is the sync engine's initial pull, not this
// package.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/garanaibrahim7/expense-manager/internal/domain"
)

// Snapshot is the exported document shape.
type Snapshot struct {
	UserID       string               `json:"userId"`
	ExportedAt   time.Time            `json:"exportedAt"`
	Accounts     []accountJSON        `json:"accounts"`
	Transactions []transactionJSON    `json:"transactions"`
}

type accountJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	InitialBalance string `json:"initialBalance"`
	CurrentBalance string `json:"currentBalance"`
	Color          string `json:"color"`
	Icon           string `json:"icon"`
	CreatedAt      int64  `json:"createdAt"`
}

type transactionJSON struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	Amount    string `json:"amount"`
	Type      string `json:"type"`
	Category  string `json:"category,omitempty"`
	Note      string `json:"note,omitempty"`
	Date      int64  `json:"date"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Build assembles a snapshot from an in-memory copy of the user's rows.
func Build(userID string, accounts []domain.Account, transactions []domain.Transaction) Snapshot {
	snap := Snapshot{
		UserID:     userID,
		ExportedAt: time.Now().UTC(),
	}
	for _, a := range accounts {
		snap.Accounts = append(snap.Accounts, accountJSON{
			ID:             a.ID,
			Name:           a.Name,
			InitialBalance: a.InitialBalance.String(),
			CurrentBalance: a.CurrentBalance.String(),
			Color:          a.Color,
			Icon:           a.Icon,
			CreatedAt:      a.CreatedAt,
		})
	}
	for _, t := range transactions {
		snap.Transactions = append(snap.Transactions, transactionJSON{
			ID:        t.ID,
			AccountID: t.AccountID,
			Amount:    t.Amount.String(),
			Type:      string(t.Type),
			Category:  t.Category,
			Note:      t.Note,
			Date:      t.Date,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}
	return snap
}

// Write serializes the snapshot as indented JSON.
func Write(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("Write: encoding snapshot: %w", err)
	}
	return nil
}

// Upload writes the snapshot to gs://bucket/object. It assumes Application
// Default Credentials are configured.
func Upload(ctx context.Context, bucket, object string, snap Snapshot) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Upload: creating storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if err := Write(w, snap); err != nil {
		_ = w.Close()
		return fmt.Errorf("Upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalizing upload: %w", err)
	}
	return nil
}
