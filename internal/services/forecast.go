package services

import (
	"context"
	"fmt"
	"log/slog"

	"fincycle/internal/core"
	"fincycle/internal/exchange"
	applog "fincycle/internal/log"
	"fincycle/internal/storage"
)

// Forecaster projects a month that has not been materialized. It never writes.
type Forecaster struct {
	workspaces storage.WorkspaceStore
	planner    planner
}

func NewForecaster(workspaces storage.WorkspaceStore, ledger storage.LedgerStore, rates exchange.RateProvider) *Forecaster {
	return &Forecaster{workspaces: workspaces, planner: planner{ledger: ledger, rates: rates}}
}

// Forecast returns the projected cycle for the month containing month. Every
// item is PENDING and there are no expenses. A rate lookup failure fails the
// forecast; no stale or zero amount is substituted.
func (f *Forecaster) Forecast(ctx context.Context, workspaceID string, month core.Date) (core.CycleView, error) {
	if month.IsZero() {
		return core.CycleView{}, core.Invalid("month", "month is required")
	}
	ws, err := f.workspaces.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return core.CycleView{}, err
	}

	ms := core.MonthStart(month.Time)
	debts, incomes, err := f.planner.plan(ctx, ws, ms, nil, nil)
	if err != nil {
		return core.CycleView{}, fmt.Errorf("forecast %s: %w", ms, err)
	}

	view := core.CycleView{
		WorkspaceID: ws.ID,
		Month:       ms,
		Currency:    ws.DefaultCurrency,
		Debts:       debts,
		Incomes:     incomes,
	}
	view.Tally()
	slog.DebugContext(ctx, "Month forecast",
		applog.FieldOperation, applog.OpForecast,
		applog.FieldWorkspaceID, ws.ID,
		applog.FieldMonth, ms.String(),
		applog.FieldItems, len(debts)+len(incomes))
	return view, nil
}
