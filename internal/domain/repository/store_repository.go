package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
)

type StoreRepository interface {
	CreateItem(ctx context.Context, tx *sql.Tx, item *model.StoreItem) error
	FindItemByID(ctx context.Context, tx *sql.Tx, id string) (*model.StoreItem, error)
	ListActiveItems(ctx context.Context, category string) ([]model.StoreItem, error)
	// DecrementStock is a no-op for unlimited items.
	DecrementStock(ctx context.Context, tx *sql.Tx, itemID string) error
	CreatePurchase(ctx context.Context, tx *sql.Tx, p *model.Purchase) error
	ListPurchasesByUser(ctx context.Context, userID string) ([]model.Purchase, error)
}

type pgStoreRepository struct {
	db *sql.DB
}

func NewPgStoreRepository(db *sql.DB) StoreRepository {
	return &pgStoreRepository{db: db}
}

func (r *pgStoreRepository) CreateItem(ctx context.Context, tx *sql.Tx, item *model.StoreItem) error {
	metadata, err := toJSONB(item.Metadata)
	if err != nil {
		return fmt.Errorf("pgStoreRepository.CreateItem: %w", err)
	}
	query := `INSERT INTO store_items (id, title, slug, description, category, cost_coins, provider, image_url, stock_quantity, is_active, metadata)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING created_at, updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		item.ID, item.Title, item.Slug, item.Description, item.Category, item.CostCoins,
		item.Provider, item.ImageURL, item.StockQuantity, item.IsActive, metadata,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("store item with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgStoreRepository.CreateItem: %w", err)
	}
	return nil
}

const storeItemColumns = `id, title, slug, description, category, cost_coins, provider, image_url,
       stock_quantity, is_active, metadata, created_at, updated_at`

func scanItem(row rowScanner) (*model.StoreItem, error) {
	var it model.StoreItem
	var provider, imageURL sql.NullString
	var stock sql.NullInt64
	var metadata []byte
	if err := row.Scan(&it.ID, &it.Title, &it.Slug, &it.Description, &it.Category, &it.CostCoins,
		&provider, &imageURL, &stock, &it.IsActive, &metadata, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	if provider.Valid {
		it.Provider = &provider.String
	}
	if imageURL.Valid {
		it.ImageURL = &imageURL.String
	}
	if stock.Valid {
		n := int(stock.Int64)
		it.StockQuantity = &n
	}
	if err := fromJSONB(metadata, &it.Metadata); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *pgStoreRepository) FindItemByID(ctx context.Context, tx *sql.Tx, id string) (*model.StoreItem, error) {
	query := `SELECT ` + storeItemColumns + ` FROM store_items WHERE id = $1`
	it, err := scanItem(conn(r.db, tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgStoreRepository.FindItemByID: %w", err)
	}
	return it, nil
}

func (r *pgStoreRepository) ListActiveItems(ctx context.Context, category string) ([]model.StoreItem, error) {
	query := `SELECT ` + storeItemColumns + ` FROM store_items WHERE is_active`
	var args []interface{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY cost_coins, title`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgStoreRepository.ListActiveItems: %w", err)
	}
	defer rows.Close()

	items := []model.StoreItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("pgStoreRepository.ListActiveItems scan: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *pgStoreRepository) DecrementStock(ctx context.Context, tx *sql.Tx, itemID string) error {
	query := `UPDATE store_items
	          SET stock_quantity = stock_quantity - 1, updated_at = now()
	          WHERE id = $1 AND (stock_quantity IS NULL OR stock_quantity > 0)`
	// stock_quantity - 1 on NULL stays NULL, so unlimited items pass through.
	res, err := conn(r.db, tx).ExecContext(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("pgStoreRepository.DecrementStock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgStoreRepository.DecrementStock rows: %w", err)
	}
	if n == 0 {
		return common.ErrOutOfStock
	}
	return nil
}

func (r *pgStoreRepository) CreatePurchase(ctx context.Context, tx *sql.Tx, p *model.Purchase) error {
	details, err := toJSONB(p.PurchaseDetails)
	if err != nil {
		return fmt.Errorf("pgStoreRepository.CreatePurchase: %w", err)
	}
	query := `INSERT INTO user_purchases (id, user_id, store_item_id, coins_spent, status, purchase_details)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		p.ID, p.UserID, p.StoreItemID, p.CoinsSpent, p.Status, details,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgStoreRepository.CreatePurchase: %w", err)
	}
	return nil
}

func (r *pgStoreRepository) ListPurchasesByUser(ctx context.Context, userID string) ([]model.Purchase, error) {
	query := `SELECT id, user_id, store_item_id, coins_spent, status, purchase_details, created_at
	          FROM user_purchases
	          WHERE user_id = $1
	          ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgStoreRepository.ListPurchasesByUser: %w", err)
	}
	defer rows.Close()

	purchases := []model.Purchase{}
	for rows.Next() {
		var p model.Purchase
		var details []byte
		if err := rows.Scan(&p.ID, &p.UserID, &p.StoreItemID, &p.CoinsSpent, &p.Status, &details, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgStoreRepository.ListPurchasesByUser scan: %w", err)
		}
		if err := fromJSONB(details, &p.PurchaseDetails); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
