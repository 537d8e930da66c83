package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"

	"github.com/shopspring/decimal"
)

type TripRepository interface {
	CreateTrip(ctx context.Context, tx *sql.Tx, trip *model.Trip) error
	FindTripByID(ctx context.Context, tx *sql.Tx, id string) (*model.Trip, error)
	ListTripsByUser(ctx context.Context, userID string) ([]model.Trip, error)
	CreateExpense(ctx context.Context, tx *sql.Tx, e *model.Expense) error
	// AddToTotalSpent increments the trip total in place and returns the new value.
	AddToTotalSpent(ctx context.Context, tx *sql.Tx, tripID string, amount decimal.Decimal) (decimal.Decimal, error)
	ListExpenses(ctx context.Context, tripID string) ([]model.Expense, error)
}

type pgTripRepository struct {
	db *sql.DB
}

func NewPgTripRepository(db *sql.DB) TripRepository {
	return &pgTripRepository{db: db}
}

func (r *pgTripRepository) CreateTrip(ctx context.Context, tx *sql.Tx, t *model.Trip) error {
	query := `INSERT INTO trips (id, user_id, title, destination, description, start_date, end_date, budget_limit, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING total_spent, created_at, updated_at`
	var budget decimal.NullDecimal
	if t.BudgetLimit != nil {
		budget = decimal.NewNullDecimal(*t.BudgetLimit)
	}
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		t.ID, t.UserID, t.Title, t.Destination, t.Description, t.StartDate, t.EndDate, budget, t.Status,
	).Scan(&t.TotalSpent, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgTripRepository.CreateTrip: %w", err)
	}
	return nil
}

const tripColumns = `id, user_id, title, destination, description, start_date, end_date,
       budget_limit, total_spent, status, created_at, updated_at`

func scanTrip(row rowScanner) (*model.Trip, error) {
	var t model.Trip
	var description sql.NullString
	var start, end sql.NullTime
	var budget decimal.NullDecimal
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Destination, &description, &start, &end,
		&budget, &t.TotalSpent, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if start.Valid {
		t.StartDate = &start.Time
	}
	if end.Valid {
		t.EndDate = &end.Time
	}
	if budget.Valid {
		t.BudgetLimit = &budget.Decimal
	}
	return &t, nil
}

func (r *pgTripRepository) FindTripByID(ctx context.Context, tx *sql.Tx, id string) (*model.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	t, err := scanTrip(conn(r.db, tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTripRepository.FindTripByID: %w", err)
	}
	return t, nil
}

func (r *pgTripRepository) ListTripsByUser(ctx context.Context, userID string) ([]model.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgTripRepository.ListTripsByUser: %w", err)
	}
	defer rows.Close()

	trips := []model.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("pgTripRepository.ListTripsByUser scan: %w", err)
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func (r *pgTripRepository) CreateExpense(ctx context.Context, tx *sql.Tx, e *model.Expense) error {
	query := `INSERT INTO expenses (id, trip_id, user_id, amount, currency, category, description, location, expense_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING created_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		e.ID, e.TripID, e.UserID, e.Amount, e.Currency, e.Category, e.Description, e.Location, e.ExpenseDate,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgTripRepository.CreateExpense: %w", err)
	}
	return nil
}

func (r *pgTripRepository) AddToTotalSpent(ctx context.Context, tx *sql.Tx, tripID string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE trips SET total_spent = total_spent + $1, updated_at = now() WHERE id = $2 RETURNING total_spent`
	var total decimal.Decimal
	if err := conn(r.db, tx).QueryRowContext(ctx, query, amount, tripID).Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, common.ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("pgTripRepository.AddToTotalSpent: %w", err)
	}
	return total, nil
}

func (r *pgTripRepository) ListExpenses(ctx context.Context, tripID string) ([]model.Expense, error) {
	query := `SELECT id, trip_id, user_id, amount, currency, category, description, location, expense_date, created_at
	          FROM expenses WHERE trip_id = $1 ORDER BY expense_date DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("pgTripRepository.ListExpenses: %w", err)
	}
	defer rows.Close()

	expenses := []model.Expense{}
	for rows.Next() {
		var e model.Expense
		var currency, location sql.NullString
		if err := rows.Scan(&e.ID, &e.TripID, &e.UserID, &e.Amount, &currency, &e.Category,
			&e.Description, &location, &e.ExpenseDate, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgTripRepository.ListExpenses scan: %w", err)
		}
		if currency.Valid {
			e.Currency = &currency.String
		}
		if location.Valid {
			e.Location = &location.String
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
