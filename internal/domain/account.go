package domain

import (
	"github.com/shopspring/decimal"
)

// Account is a named balance bucket (cash, bank, wallet) owned by a single user.
// CurrentBalance is a materialized aggregate: it always equals InitialBalance plus
// the signed effect of every transaction referencing the account. It is maintained
// incrementally by the ledger, never recomputed on the read path.
type Account struct {
	ID             string
	Name           string
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Color          string
	Icon           string
	CreatedAt      int64 // epoch milliseconds

	// Synced is true iff the local row matches the last confirmed remote write.
	// Any business-field mutation clears it; only a confirmed upload or a
	// remote-origin upsert sets it.
	Synced bool
}
