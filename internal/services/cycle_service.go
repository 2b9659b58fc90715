package services

import (
	"context"
	"errors"
	"fmt"

	"fincycle/internal/core"
	"fincycle/internal/storage"
)

// CycleService is the read path for a month: the materialized cycle when one
// exists, the forecast otherwise.
type CycleService struct {
	store      storage.Store
	forecaster *Forecaster
}

func NewCycleService(store storage.Store, forecaster *Forecaster) *CycleService {
	return &CycleService{store: store, forecaster: forecaster}
}

func (s *CycleService) Month(ctx context.Context, workspaceID string, month core.Date) (core.CycleView, error) {
	if month.IsZero() {
		return core.CycleView{}, core.Invalid("month", "month is required")
	}
	cycle, err := s.store.FindCycle(ctx, workspaceID, month)
	if errors.Is(err, core.ErrNotFound) {
		return s.forecaster.Forecast(ctx, workspaceID, month)
	}
	if err != nil {
		return core.CycleView{}, fmt.Errorf("find cycle: %w", err)
	}
	return s.materialized(ctx, cycle)
}

func (s *CycleService) materialized(ctx context.Context, cycle core.Cycle) (core.CycleView, error) {
	ws, err := s.store.GetWorkspace(ctx, cycle.WorkspaceID)
	if err != nil {
		return core.CycleView{}, err
	}
	items, err := s.store.ListLineItems(ctx, cycle.ID)
	if err != nil {
		return core.CycleView{}, fmt.Errorf("list line items: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, cycle.ID)
	if err != nil {
		return core.CycleView{}, fmt.Errorf("list expenses: %w", err)
	}

	view := core.CycleView{
		CycleID:      cycle.ID,
		WorkspaceID:  cycle.WorkspaceID,
		Month:        cycle.Month,
		Materialized: true,
		Currency:     ws.DefaultCurrency,
		Expenses:     expenses,
	}
	for _, it := range items {
		v := s.describe(ctx, cycle.WorkspaceID, it)
		if it.Kind == core.KindDebt {
			view.Debts = append(view.Debts, v)
		} else {
			view.Incomes = append(view.Incomes, v)
		}
	}
	view.Tally()
	return view, nil
}

// describe attaches the source's name and schedule to a line item. Items whose
// source was deleted keep their stored values and an empty name.
func (s *CycleService) describe(ctx context.Context, workspaceID string, it core.LineItem) core.ViewItem {
	v := core.ViewItem{LineItem: it}
	var (
		src core.Source
		err error
	)
	if it.Kind == core.KindDebt {
		var d core.Debt
		d, err = s.store.GetDebt(ctx, workspaceID, it.SourceID)
		src = d.Source()
	} else {
		var i core.Income
		i, err = s.store.GetIncome(ctx, workspaceID, it.SourceID)
		src = i.Source()
	}
	if err != nil {
		return v
	}
	v.Name = src.Name
	v.Installments = src.Count
	v.Open = src.Schedule.Open
	return v
}
