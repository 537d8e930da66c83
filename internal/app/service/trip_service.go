package service

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type TripService struct {
	tripRepo repository.TripRepository
	db       *sql.DB
}

func NewTripService(tripRepo repository.TripRepository, db *sql.DB) *TripService {
	return &TripService{tripRepo: tripRepo, db: db}
}

type CreateTripRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Destination string           `json:"destination" validate:"required,max=200"`
	Description *string          `json:"description,omitempty"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	BudgetLimit *decimal.Decimal `json:"budget_limit,omitempty"`
}

func (s *TripService) CreateTrip(ctx context.Context, userID string, req CreateTripRequest) (*model.Trip, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.BudgetLimit != nil && req.BudgetLimit.IsNegative() {
		return nil, common.Errorf("budget_limit cannot be negative: %w", common.ErrValidation)
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, common.Errorf("end_date is before start_date: %w", common.ErrValidation)
	}

	trip := &model.Trip{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Destination: strings.TrimSpace(req.Destination),
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		BudgetLimit: req.BudgetLimit,
		Status:      model.TripPlanning,
	}
	if err := s.tripRepo.CreateTrip(ctx, nil, trip); err != nil {
		return nil, common.Errorf("failed to create trip: %w", err)
	}
	return trip, nil
}

func (s *TripService) ListTrips(ctx context.Context, userID string) ([]model.Trip, error) {
	return s.tripRepo.ListTripsByUser(ctx, userID)
}

// GetTrip hides other users' trips behind ErrNotFound.
func (s *TripService) GetTrip(ctx context.Context, userID, tripID string) (*model.Trip, error) {
	trip, err := s.tripRepo.FindTripByID(ctx, nil, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != userID {
		return nil, common.ErrNotFound
	}
	return trip, nil
}

type AddExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    *string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	Category    string          `json:"category" validate:"required,oneof=food transport accommodation activities shopping other"`
	Description string          `json:"description" validate:"required,max=500"`
	Location    *string         `json:"location,omitempty"`
	ExpenseDate *time.Time      `json:"expense_date,omitempty"`
}

type ExpenseReceipt struct {
	Expense    *model.Expense  `json:"expense"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	OverBudget bool            `json:"over_budget"`
}

// AddExpense records an expense and bumps the trip total in one transaction.
// Going over budget is reported, not refused.
func (s *TripService) AddExpense(ctx context.Context, userID, tripID string, req AddExpenseRequest) (*ExpenseReceipt, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, common.Errorf("amount must be positive: %w", common.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	trip, err := s.tripRepo.FindTripByID(ctx, tx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != userID {
		return nil, common.ErrNotFound
	}

	expenseDate := time.Now().UTC()
	if req.ExpenseDate != nil {
		expenseDate = *req.ExpenseDate
	}
	expense := &model.Expense{
		ID:          uuid.NewString(),
		TripID:      trip.ID,
		UserID:      userID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		ExpenseDate: expenseDate,
	}
	if err := s.tripRepo.CreateExpense(ctx, tx, expense); err != nil {
		return nil, common.Errorf("failed to record expense: %w", err)
	}
	total, err := s.tripRepo.AddToTotalSpent(ctx, tx, trip.ID, req.Amount)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit expense: %w", err)
	}

	trip.TotalSpent = total
	receipt := &ExpenseReceipt{Expense: expense, TotalSpent: total, OverBudget: trip.OverBudget()}
	if receipt.OverBudget {
		logging.WithFields(logrus.Fields{"trip_id": trip.ID, "user_id": userID, "total_spent": total.String()}).Info("trip is over budget")
	}
	return receipt, nil
}

func (s *TripService) ListExpenses(ctx context.Context, userID, tripID string) ([]model.Expense, error) {
	if _, err := s.GetTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.tripRepo.ListExpenses(ctx, tripID)
}
