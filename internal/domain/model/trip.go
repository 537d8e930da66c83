package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TripPlanning  = "planning"
	TripActive    = "active"
	TripCompleted = "completed"
)

type Trip struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Title       string           `json:"title"`
	Destination string           `json:"destination"`
	Description *string          `json:"description,omitempty"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	BudgetLimit *decimal.Decimal `json:"budget_limit,omitempty"`
	TotalSpent  decimal.Decimal  `json:"total_spent"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// OverBudget reports whether spending exceeds the budget. No budget is never over.
func (t Trip) OverBudget() bool {
	return t.BudgetLimit != nil && t.TotalSpent.GreaterThan(*t.BudgetLimit)
}

type Expense struct {
	ID          string          `json:"id"`
	TripID      string          `json:"trip_id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    *string         `json:"currency,omitempty"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Location    *string         `json:"location,omitempty"`
	ExpenseDate time.Time       `json:"expense_date"`
	CreatedAt   time.Time       `json:"created_at"`
}
