package ledger

import (
	"context"
	"testing"

	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// recordingStore captures applied deltas per account.
type recordingStore struct {
	deltas map[string]decimal.Decimal
	err    error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{deltas: make(map[string]decimal.Decimal)}
}

func (r *recordingStore) ApplyBalanceDelta(ctx context.Context, accountID string, delta decimal.Decimal) error {
	if r.err != nil {
		return r.err
	}
	r.deltas[accountID] = r.deltas[accountID].Add(delta)
	return nil
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		typ    domain.TransactionType
		want   int64
	}{
		{"income adds", 50, domain.TypeIn, 50},
		{"expense subtracts", 50, domain.TypeOut, -50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore()
			l := New(store)

			if err := l.Apply(context.Background(), "acc-1", decimal.NewFromInt(tt.amount), tt.typ); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got := store.deltas["acc-1"]; !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("delta = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestRevertCancelsApply(t *testing.T) {
	store := newRecordingStore()
	l := New(store)
	ctx := context.Background()

	for _, typ := range []domain.TransactionType{domain.TypeIn, domain.TypeOut} {
		amount := decimal.NewFromInt(37)
		if err := l.Apply(ctx, "acc-1", amount, typ); err != nil {
			t.Fatalf("Apply(%s): %v", typ, err)
		}
		if err := l.Revert(ctx, "acc-1", amount, typ); err != nil {
			t.Fatalf("Revert(%s): %v", typ, err)
		}
	}

	if got := store.deltas["acc-1"]; !got.IsZero() {
		t.Errorf("net delta after apply+revert = %s, want 0", got)
	}
}

func TestEditAsRevertThenApply(t *testing.T) {
	// The edit path: balance 100, add income 50,
	// then edit it to an expense of 20. Net effect on the account: -70
	// relative to the post-income state, i.e. +50 then -50 then -20.
	store := newRecordingStore()
	l := New(store)
	ctx := context.Background()

	if err := l.Apply(ctx, "acc-1", decimal.NewFromInt(50), domain.TypeIn); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := l.Revert(ctx, "acc-1", decimal.NewFromInt(50), domain.TypeIn); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if err := l.Apply(ctx, "acc-1", decimal.NewFromInt(20), domain.TypeOut); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := store.deltas["acc-1"]; !got.Equal(decimal.NewFromInt(-20)) {
		t.Errorf("net delta = %s, want -20", got)
	}
}

func TestApplyPropagatesStoreError(t *testing.T) {
	store := newRecordingStore()
	store.err = &domain.AccountNotFoundError{AccountID: "ghost"}
	l := New(store)

	if err := l.Apply(context.Background(), "ghost", decimal.NewFromInt(5), domain.TypeIn); err == nil {
		t.Fatal("Apply should surface the store error")
	}
}
