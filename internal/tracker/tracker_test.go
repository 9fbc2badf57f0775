package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/garanaibrahim7/expense-manager/internal/connectivity"
	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/garanaibrahim7/expense-manager/internal/ledger"
	"github.com/garanaibrahim7/expense-manager/internal/localstore"
	"github.com/garanaibrahim7/expense-manager/internal/remote/memory"
	"github.com/garanaibrahim7/expense-manager/internal/syncengine"
	"github.com/shopspring/decimal"
)

func newService(t *testing.T, online bool) (*Service, *localstore.Store, *memory.Store, *connectivity.Static) {
	t.Helper()
	store, err := localstore.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rs := memory.NewStore()
	gate := connectivity.NewStatic(online)
	engine := syncengine.New(store, rs, gate)
	svc := New(store, ledger.New(store), engine, gate, StaticAuth{UserID: "user-1"})
	return svc, store, rs, gate
}

func mustCreateAccount(t *testing.T, svc *Service, initial int64) *domain.Account {
	t.Helper()
	a, err := svc.CreateAccount(context.Background(), NewAccount{
		Name:           "Checking",
		InitialBalance: decimal.NewFromInt(initial),
		Color:          "#4caf50",
		Icon:           "wallet",
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func balanceOf(t *testing.T, store *localstore.Store, id string) decimal.Decimal {
	t.Helper()
	a, err := store.AccountByID(context.Background(), id)
	if err != nil {
		t.Fatalf("AccountByID: %v", err)
	}
	return a.CurrentBalance
}

func TestCreateAccountStartsAtInitialBalance(t *testing.T) {
	svc, store, _, _ := newService(t, false)

	a := mustCreateAccount(t, svc, 100)
	if !a.CurrentBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("CurrentBalance = %s, want 100", a.CurrentBalance)
	}
	if got := balanceOf(t, store, a.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("stored balance = %s, want 100", got)
	}
}

func TestAddTransactionAdjustsBalance(t *testing.T) {
	tests := []struct {
		name   string
		typ    domain.TransactionType
		amount int64
		want   int64
	}{
		{"income raises the balance", domain.TypeIn, 50, 150},
		{"expense lowers the balance", domain.TypeOut, 30, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, _ := newService(t, false)
			a := mustCreateAccount(t, svc, 100)

			_, err := svc.AddTransaction(context.Background(), NewTransaction{
				AccountID: a.ID,
				Amount:    decimal.NewFromInt(tt.amount),
				Type:      tt.typ,
			})
			if err != nil {
				t.Fatalf("AddTransaction: %v", err)
			}
			if got := balanceOf(t, store, a.ID); !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("balance = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestUpdateTransactionRevertsThenApplies(t *testing.T) {
	// Account at 100, income of 50 takes it to 150. Editing the same
	// transaction into an expense of 20 must land the balance on 80.
	svc, store, _, _ := newService(t, false)
	a := mustCreateAccount(t, svc, 100)
	ctx := context.Background()

	tx, err := svc.AddTransaction(ctx, NewTransaction{
		AccountID: a.ID,
		Amount:    decimal.NewFromInt(50),
		Type:      domain.TypeIn,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if got := balanceOf(t, store, a.ID); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("balance after income = %s, want 150", got)
	}

	edited := *tx
	edited.Amount = decimal.NewFromInt(20)
	edited.Type = domain.TypeOut
	if err := svc.UpdateTransaction(ctx, edited); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if got := balanceOf(t, store, a.ID); !got.Equal(decimal.NewFromInt(80)) {
		t.Errorf("balance after edit = %s, want 80", got)
	}
}

func TestUpdateTransactionNoteOnlyKeepsBalance(t *testing.T) {
	svc, store, _, _ := newService(t, false)
	a := mustCreateAccount(t, svc, 100)
	ctx := context.Background()

	tx, err := svc.AddTransaction(ctx, NewTransaction{
		AccountID: a.ID,
		Amount:    decimal.NewFromInt(40),
		Type:      domain.TypeOut,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	edited := *tx
	edited.Note = "coffee"
	if err := svc.UpdateTransaction(ctx, edited); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if got := balanceOf(t, store, a.ID); !got.Equal(decimal.NewFromInt(60)) {
		t.Errorf("balance after note-only edit = %s, want unchanged 60", got)
	}
}

func TestDeleteTransactionRestoresBalance(t *testing.T) {
	svc, store, rs, _ := newService(t, true)
	a := mustCreateAccount(t, svc, 100)
	ctx := context.Background()

	tx, err := svc.AddTransaction(ctx, NewTransaction{
		AccountID: a.ID,
		Amount:    decimal.NewFromInt(25),
		Type:      domain.TypeOut,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := svc.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if got := balanceOf(t, store, a.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance after delete = %s, want 100", got)
	}
	if _, ok := rs.Transaction("user-1", tx.ID); ok {
		t.Error("remote transaction document should be deleted")
	}
}

func TestDeleteTransactionOfflineFailsUntouched(t *testing.T) {
	svc, store, _, gate := newService(t, true)
	a := mustCreateAccount(t, svc, 100)
	ctx := context.Background()

	tx, err := svc.AddTransaction(ctx, NewTransaction{
		AccountID: a.ID,
		Amount:    decimal.NewFromInt(25),
		Type:      domain.TypeOut,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	gate.SetOnline(false)
	err = svc.DeleteTransaction(ctx, tx.ID)
	var offline *domain.OfflineDeleteError
	if !errors.As(err, &offline) {
		t.Fatalf("got %v, want OfflineDeleteError", err)
	}

	// Neither the row nor the balance moved.
	got, err := store.TransactionByID(ctx, tx.ID)
	if err != nil {
		t.Fatalf("TransactionByID: %v", err)
	}
	if got == nil {
		t.Fatal("transaction row must survive a rejected offline delete")
	}
	if bal := balanceOf(t, store, a.ID); !bal.Equal(decimal.NewFromInt(75)) {
		t.Errorf("balance = %s, want unchanged 75", bal)
	}
}

func TestDeleteAccountWorksOfflineAndLeavesNoOrphans(t *testing.T) {
	svc, store, _, _ := newService(t, false)
	a := mustCreateAccount(t, svc, 100)
	keep := mustCreateAccount(t, svc, 50)
	ctx := context.Background()

	for range 3 {
		if _, err := svc.AddTransaction(ctx, NewTransaction{
			AccountID: a.ID,
			Amount:    decimal.NewFromInt(5),
			Type:      domain.TypeOut,
		}); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
	}

	// Unlike transaction deletes, account deletes carry no connectivity
	// precondition.
	if err := svc.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	txs, err := store.Transactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("orphan transactions = %d, want 0", len(txs))
	}
	if _, err := store.AccountByID(ctx, keep.ID); err != nil {
		t.Errorf("unrelated account should survive: %v", err)
	}
}

func TestAddTransactionUnknownAccount(t *testing.T) {
	svc, store, _, _ := newService(t, false)
	ctx := context.Background()

	_, err := svc.AddTransaction(ctx, NewTransaction{
		AccountID: "ghost",
		Amount:    decimal.NewFromInt(10),
		Type:      domain.TypeOut,
	})
	var refErr *domain.ReferentialError
	if !errors.As(err, &refErr) {
		t.Fatalf("got %v, want ReferentialError", err)
	}

	txs, err := store.Transactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Error("rejected insert must leave no row behind")
	}
}

func TestAddTransactionRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, _ := newService(t, false)
	a := mustCreateAccount(t, svc, 100)

	for _, amount := range []int64{0, -10} {
		_, err := svc.AddTransaction(context.Background(), NewTransaction{
			AccountID: a.ID,
			Amount:    decimal.NewFromInt(amount),
			Type:      domain.TypeIn,
		})
		if err == nil {
			t.Errorf("amount %d accepted, want validation error", amount)
		}
	}
}

func TestBalanceInvariantOverMutationSequence(t *testing.T) {
	// current balance == initial balance + sum of surviving effects,
	// across inserts, edits and deletes in any order.
	svc, store, _, _ := newService(t, true)
	a := mustCreateAccount(t, svc, 1000)
	ctx := context.Background()

	steps := []struct {
		amount int64
		typ    domain.TransactionType
	}{
		{200, domain.TypeIn},
		{75, domain.TypeOut},
		{30, domain.TypeOut},
		{500, domain.TypeIn},
	}
	var ids []string
	for _, step := range steps {
		tx, err := svc.AddTransaction(ctx, NewTransaction{
			AccountID: a.ID,
			Amount:    decimal.NewFromInt(step.amount),
			Type:      step.typ,
		})
		if err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
		ids = append(ids, tx.ID)
	}

	// Edit the first income down, delete one expense.
	first, err := store.TransactionByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("TransactionByID: %v", err)
	}
	first.Amount = decimal.NewFromInt(150)
	if err := svc.UpdateTransaction(ctx, *first); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, ids[2]); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}

	txs, err := store.Transactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	want := decimal.NewFromInt(1000)
	for _, tx := range txs {
		want = want.Add(tx.Effect())
	}
	if got := balanceOf(t, store, a.ID); !got.Equal(want) {
		t.Errorf("balance = %s, want %s (initial plus surviving effects)", got, want)
	}
}

func TestMutationsPushWhenOnline(t *testing.T) {
	svc, _, rs, _ := newService(t, true)
	a := mustCreateAccount(t, svc, 100)

	if _, ok := rs.Account("user-1", a.ID); !ok {
		t.Error("online account creation should reach the remote via the sweep")
	}
}

func TestUnauthenticated(t *testing.T) {
	store, err := localstore.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	gate := connectivity.NewStatic(false)
	engine := syncengine.New(store, memory.NewStore(), gate)
	svc := New(store, ledger.New(store), engine, gate, StaticAuth{})

	if _, err := svc.CreateAccount(context.Background(), NewAccount{Name: "x"}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("got %v, want ErrNotAuthenticated", err)
	}
}

func TestBootstrapPullsRemoteBackup(t *testing.T) {
	svc, store, rs, _ := newService(t, true)
	ctx := context.Background()

	if err := rs.PutAccount(ctx, "user-1", domain.Account{
		ID:             "acc-remote",
		Name:           "Restored",
		InitialBalance: decimal.NewFromInt(10),
		CurrentBalance: decimal.NewFromInt(10),
		CreatedAt:      1,
	}); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if _, err := store.AccountByID(ctx, "acc-remote"); err != nil {
		t.Errorf("remote account not restored locally: %v", err)
	}
}
