package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	items     map[string]*model.StoreItem
	purchases []model.Purchase
}

func (f *fakeStore) CreateItem(_ context.Context, _ *sql.Tx, item *model.StoreItem) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeStore) FindItemByID(_ context.Context, _ *sql.Tx, id string) (*model.StoreItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (f *fakeStore) ListActiveItems(context.Context, string) ([]model.StoreItem, error) {
	out := []model.StoreItem{}
	for _, item := range f.items {
		if item.IsActive {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeStore) DecrementStock(_ context.Context, _ *sql.Tx, id string) error {
	item := f.items[id]
	if item.StockQuantity == nil {
		return nil
	}
	if *item.StockQuantity <= 0 {
		return common.ErrOutOfStock
	}
	n := *item.StockQuantity - 1
	item.StockQuantity = &n
	return nil
}

func (f *fakeStore) CreatePurchase(_ context.Context, _ *sql.Tx, p *model.Purchase) error {
	f.purchases = append(f.purchases, *p)
	return nil
}

func (f *fakeStore) ListPurchasesByUser(_ context.Context, userID string) ([]model.Purchase, error) {
	return f.purchases, nil
}

func TestPurchaseGiftCardDebitsAndIssuesCode(t *testing.T) {
	db, mock := newMockDB(t)
	store := &fakeStore{items: map[string]*model.StoreItem{}}
	ledger := newFakeLedger()
	ledger.available[userA] = 120
	svc := NewStoreService(store, ledger, db)

	item, err := svc.CreateItem(context.Background(), CreateItemRequest{
		Title: "Museum Pass Gift Card", Category: model.ItemCategoryGiftCard, CostCoins: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "museum-pass-gift-card", item.Slug)

	mock.ExpectBegin()
	mock.ExpectCommit()
	p, err := svc.Purchase(context.Background(), userA, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, p.CoinsSpent)
	assert.Equal(t, model.PurchaseCompleted, p.Status)
	assert.Len(t, p.PurchaseDetails.RedemptionCode, 19)
	assert.Equal(t, 3, strings.Count(p.PurchaseDetails.RedemptionCode, "-"))
	assert.Equal(t, 20, ledger.available[userA])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	db, mock := newMockDB(t)
	store := &fakeStore{items: map[string]*model.StoreItem{
		"item-1": {ID: "item-1", Title: "Tour", Category: "experience", CostCoins: 300, IsActive: true},
	}}
	ledger := newFakeLedger()
	ledger.available[userA] = 50
	svc := NewStoreService(store, ledger, db)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Purchase(context.Background(), userA, "item-1")
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	assert.Equal(t, 50, ledger.available[userA])
	assert.Empty(t, store.purchases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseOutOfStockAndInactive(t *testing.T) {
	db, mock := newMockDB(t)
	zero := 0
	store := &fakeStore{items: map[string]*model.StoreItem{
		"sold-out": {ID: "sold-out", CostCoins: 10, IsActive: true, StockQuantity: &zero},
		"retired":  {ID: "retired", CostCoins: 10, IsActive: false},
	}}
	ledger := newFakeLedger()
	ledger.available[userA] = 100
	svc := NewStoreService(store, ledger, db)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Purchase(context.Background(), userA, "sold-out")
	assert.ErrorIs(t, err, common.ErrOutOfStock)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Purchase(context.Background(), userA, "retired")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Equal(t, 100, ledger.available[userA])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItemValidation(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewStoreService(&fakeStore{items: map[string]*model.StoreItem{}}, newFakeLedger(), db)

	_, err := svc.CreateItem(context.Background(), CreateItemRequest{Title: "Free", Category: "discount", CostCoins: 0})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.CreateItem(context.Background(), CreateItemRequest{Title: "Thing", Category: "lottery", CostCoins: 5})
	assert.ErrorIs(t, err, common.ErrValidation)
}
