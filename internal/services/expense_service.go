package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fincycle/internal/core"
	"fincycle/internal/storage"
)

// ExpenseService manages ad-hoc expenses on materialized cycles.
type ExpenseService struct {
	cycles storage.CycleStore
	newID  func() string
}

func NewExpenseService(cycles storage.CycleStore) *ExpenseService {
	return &ExpenseService{cycles: cycles, newID: uuid.NewString}
}

// AddExpense attaches e to the cycle. Only materialized cycles take expenses.
func (s *ExpenseService) AddExpense(ctx context.Context, workspaceID, cycleID string, e core.Expense) (core.Expense, error) {
	cycle, err := ownedCycle(ctx, s.cycles, workspaceID, cycleID)
	if err != nil {
		return core.Expense{}, err
	}
	return s.add(ctx, cycle, e)
}

// AddExpenseToMonth attaches e to the cycle of month. A month that is still a
// forecast is a conflict.
func (s *ExpenseService) AddExpenseToMonth(ctx context.Context, workspaceID string, month core.Date, e core.Expense) (core.Expense, error) {
	cycle, err := s.cycles.FindCycle(ctx, workspaceID, month)
	if errors.Is(err, core.ErrNotFound) {
		return core.Expense{}, core.Conflict("month %s is not materialized", core.MonthStart(month.Time))
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("find cycle: %w", err)
	}
	return s.add(ctx, cycle, e)
}

func (s *ExpenseService) add(ctx context.Context, cycle core.Cycle, e core.Expense) (core.Expense, error) {
	if e.Date.IsZero() {
		e.Date = cycle.Month
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = s.newID()
	e.CycleID = cycle.ID
	if err := s.cycles.AddExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense added", "expense_id", e.ID, "cycle_id", cycle.ID, "amount_cents", e.AmountCents)
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, workspaceID, id string) error {
	e, err := s.cycles.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ownedCycle(ctx, s.cycles, workspaceID, e.CycleID); err != nil {
		return core.NotFound("expense", id)
	}
	if err := s.cycles.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted", "expense_id", id, "cycle_id", e.CycleID)
	return nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, workspaceID, cycleID string) ([]core.Expense, error) {
	if _, err := ownedCycle(ctx, s.cycles, workspaceID, cycleID); err != nil {
		return nil, err
	}
	return s.cycles.ListExpenses(ctx, cycleID)
}
