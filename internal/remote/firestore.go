package remote

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
)

// FirestoreStore is the concrete Store backed by Cloud Firestore. It holds a
// shared client to avoid creating a new connection per operation.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a store for the given project. It assumes
// Application Default Credentials unless explicit options are passed.
func NewFirestoreStore(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewFirestoreStore: creating client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close closes the Firestore client connection.
func (s *FirestoreStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *FirestoreStore) collection(userID, kind string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection(kind)
}

// accountDoc is the remote wire shape of an account. Amounts travel as
// decimal strings; the synced bit is local-only and never stored here.
type accountDoc struct {
	Name           string `firestore:"name"`
	InitialBalance string `firestore:"initialBalance"`
	CurrentBalance string `firestore:"currentBalance"`
	Color          string `firestore:"color"`
	Icon           string `firestore:"icon"`
	CreatedAt      int64  `firestore:"createdAt"`
	UpdatedAt      int64  `firestore:"updatedAt"`
}

type transactionDoc struct {
	AccountID string `firestore:"accountId"`
	Amount    string `firestore:"amount"`
	Type      string `firestore:"type"`
	Category  string `firestore:"category"`
	Note      string `firestore:"note"`
	Date      int64  `firestore:"date"`
	CreatedAt int64  `firestore:"createdAt"`
	UpdatedAt int64  `firestore:"updatedAt"`
}

// FetchAccounts implements Store.
func (s *FirestoreStore) FetchAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	it := s.collection(userID, accountsCollection).Documents(ctx)
	defer it.Stop()

	var accounts []domain.Account
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FetchAccounts: iterating: %w", err)
		}

		var doc accountDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("FetchAccounts: decoding %s: %w", snap.Ref.ID, err)
		}
		a, err := doc.toDomain(snap.Ref.ID)
		if err != nil {
			return nil, fmt.Errorf("FetchAccounts: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// FetchTransactions implements Store.
func (s *FirestoreStore) FetchTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	it := s.collection(userID, transactionsCollection).Documents(ctx)
	defer it.Stop()

	var txs []domain.Transaction
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FetchTransactions: iterating: %w", err)
		}

		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("FetchTransactions: decoding %s: %w", snap.Ref.ID, err)
		}
		t, err := doc.toDomain(snap.Ref.ID)
		if err != nil {
			return nil, fmt.Errorf("FetchTransactions: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, nil
}

// PutAccount implements Store. Merge semantics keep the write idempotent.
func (s *FirestoreStore) PutAccount(ctx context.Context, userID string, a domain.Account) error {
	doc := accountDoc{
		Name:           a.Name,
		InitialBalance: a.InitialBalance.String(),
		CurrentBalance: a.CurrentBalance.String(),
		Color:          a.Color,
		Icon:           a.Icon,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      time.Now().UnixMilli(),
	}
	if _, err := s.collection(userID, accountsCollection).Doc(a.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("PutAccount: writing %s: %w", a.ID, err)
	}
	return nil
}

// PutTransaction implements Store.
func (s *FirestoreStore) PutTransaction(ctx context.Context, userID string, t domain.Transaction) error {
	doc := transactionDoc{
		AccountID: t.AccountID,
		Amount:    t.Amount.String(),
		Type:      string(t.Type),
		Category:  t.Category,
		Note:      t.Note,
		Date:      t.Date,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if _, err := s.collection(userID, transactionsCollection).Doc(t.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("PutTransaction: writing %s: %w", t.ID, err)
	}
	return nil
}

// DeleteAccount implements Store.
func (s *FirestoreStore) DeleteAccount(ctx context.Context, userID, id string) error {
	if _, err := s.collection(userID, accountsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("DeleteAccount: deleting %s: %w", id, err)
	}
	return nil
}

// DeleteTransaction implements Store.
func (s *FirestoreStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	if _, err := s.collection(userID, transactionsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("DeleteTransaction: deleting %s: %w", id, err)
	}
	return nil
}

func (d accountDoc) toDomain(id string) (domain.Account, error) {
	initial, err := decimal.NewFromString(d.InitialBalance)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s: malformed initialBalance %q: %w", id, d.InitialBalance, err)
	}
	current, err := decimal.NewFromString(d.CurrentBalance)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s: malformed currentBalance %q: %w", id, d.CurrentBalance, err)
	}
	return domain.Account{
		ID:             id,
		Name:           d.Name,
		InitialBalance: initial,
		CurrentBalance: current,
		Color:          d.Color,
		Icon:           d.Icon,
		CreatedAt:      d.CreatedAt,
	}, nil
}

func (d transactionDoc) toDomain(id string) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: malformed amount %q: %w", id, d.Amount, err)
	}
	typ, err := domain.ParseTransactionType(d.Type)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	return domain.Transaction{
		ID:        id,
		AccountID: d.AccountID,
		Amount:    amount,
		Type:      typ,
		Category:  d.Category,
		Note:      d.Note,
		Date:      d.Date,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}
