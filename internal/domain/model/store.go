package model

import "time"

const ItemCategoryGiftCard = "gift_card"

type StoreItem struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Slug          string                 `json:"slug"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category"`
	CostCoins     int                    `json:"cost_coins"`
	Provider      *string                `json:"provider,omitempty"`
	ImageURL      *string                `json:"image_url,omitempty"`
	StockQuantity *int                   `json:"stock_quantity,omitempty"` // nil means unlimited
	IsActive      bool                   `json:"is_active"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

const PurchaseCompleted = "completed"

type PurchaseDetails struct {
	ItemTitle      string                 `json:"item_title"`
	Category       string                 `json:"category"`
	Provider       *string                `json:"provider,omitempty"`
	RedemptionCode string                 `json:"redemption_code,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type Purchase struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	StoreItemID     string          `json:"store_item_id"`
	CoinsSpent      int             `json:"coins_spent"`
	Status          string          `json:"status"`
	PurchaseDetails PurchaseDetails `json:"purchase_details"`
	CreatedAt       time.Time       `json:"created_at"`
}
