package service

import (
	"context"
	"database/sql"
	"strings"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"
	"trippey_quests/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

type StoreService struct {
	storeRepo  repository.StoreRepository
	ledgerRepo repository.LedgerRepository
	db         *sql.DB
}

func NewStoreService(storeRepo repository.StoreRepository, ledgerRepo repository.LedgerRepository, db *sql.DB) *StoreService {
	return &StoreService{storeRepo: storeRepo, ledgerRepo: ledgerRepo, db: db}
}

type CreateItemRequest struct {
	Title         string                 `json:"title" validate:"required,max=200"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category" validate:"required,oneof=discount experience gift_card merchandise"`
	CostCoins     int                    `json:"cost_coins" validate:"required,gt=0"`
	Provider      *string                `json:"provider,omitempty"`
	ImageURL      *string                `json:"image_url,omitempty" validate:"omitempty,url"`
	StockQuantity *int                   `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

func (s *StoreService) CreateItem(ctx context.Context, req CreateItemRequest) (*model.StoreItem, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	item := &model.StoreItem{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(req.Title),
		Slug:          slug.Make(req.Title),
		Description:   req.Description,
		Category:      req.Category,
		CostCoins:     req.CostCoins,
		Provider:      req.Provider,
		ImageURL:      req.ImageURL,
		StockQuantity: req.StockQuantity,
		IsActive:      true,
		Metadata:      req.Metadata,
	}
	if err := s.storeRepo.CreateItem(ctx, nil, item); err != nil {
		return nil, common.Errorf("failed to create store item: %w", err)
	}
	return item, nil
}

func (s *StoreService) ListItems(ctx context.Context, category string) ([]model.StoreItem, error) {
	return s.storeRepo.ListActiveItems(ctx, category)
}

// Purchase debits the item's cost and records the purchase in one
// transaction. The debit is conditional, so a balance never goes negative.
func (s *StoreService) Purchase(ctx context.Context, userID, itemID string) (*model.Purchase, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.storeRepo.FindItemByID(ctx, tx, itemID)
	if err != nil {
		return nil, common.Errorf("store item %s: %w", itemID, err)
	}
	if !item.IsActive {
		return nil, common.Errorf("store item %s is not on sale: %w", itemID, common.ErrNotFound)
	}
	if item.StockQuantity != nil {
		if err := s.storeRepo.DecrementStock(ctx, tx, item.ID); err != nil {
			return nil, err
		}
	}
	if err := s.ledgerRepo.DebitCoins(ctx, tx, userID, item.CostCoins); err != nil {
		return nil, err
	}

	purchase := &model.Purchase{
		ID:          uuid.NewString(),
		UserID:      userID,
		StoreItemID: item.ID,
		CoinsSpent:  item.CostCoins,
		Status:      model.PurchaseCompleted,
		PurchaseDetails: model.PurchaseDetails{
			ItemTitle: item.Title,
			Category:  item.Category,
			Provider:  item.Provider,
			Metadata:  item.Metadata,
		},
	}
	if item.Category == model.ItemCategoryGiftCard {
		purchase.PurchaseDetails.RedemptionCode = redemptionCode()
	}
	if err := s.storeRepo.CreatePurchase(ctx, tx, purchase); err != nil {
		return nil, common.Errorf("failed to record purchase: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit purchase: %w", err)
	}

	metrics.RecordRedemption(item.CostCoins)
	logging.WithFields(logrus.Fields{
		"user_id":     userID,
		"item_id":     item.ID,
		"coins_spent": item.CostCoins,
		"purchase_id": purchase.ID,
	}).Info("store purchase completed")
	return purchase, nil
}

func (s *StoreService) ListPurchases(ctx context.Context, userID string) ([]model.Purchase, error) {
	return s.storeRepo.ListPurchasesByUser(ctx, userID)
}

// redemptionCode is 16 upper-case hex characters in groups of four.
func redemptionCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
	return raw[0:4] + "-" + raw[4:8] + "-" + raw[8:12] + "-" + raw[12:16]
}
