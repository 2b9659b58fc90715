package services

import (
	"context"
	"fmt"
	"log/slog"

	"fincycle/internal/core"
	"fincycle/internal/exchange"
	"fincycle/internal/storage"
)

// planner computes the line items a month would hold. Forecasts and
// materialization share it so both produce the same amounts.
type planner struct {
	ledger storage.LedgerStore
	rates  exchange.RateProvider
}

func (p planner) normalizer(ws core.Workspace) *exchange.Normalizer {
	return exchange.NewNormalizer(ws.DefaultCurrency, p.rates)
}

// amount returns the source amount in the workspace base currency.
func (p planner) amount(ctx context.Context, ws core.Workspace, src core.Source) (int64, error) {
	cents, err := p.normalizer(ws).NormalizeMoney(ctx, src.Amount)
	if err != nil {
		return 0, fmt.Errorf("normalize %s %s: %w", src.Kind, src.ID, err)
	}
	return cents, nil
}

// plan resolves every source active in month. Overrides are base-currency
// minor units keyed by source id and bypass normalization.
func (p planner) plan(ctx context.Context, ws core.Workspace, month core.Date, debtOverrides, incomeOverrides map[string]int64) (debts, incomes []core.ViewItem, err error) {
	activeDebts, err := p.ledger.ListActiveDebts(ctx, ws.ID, month)
	if err != nil {
		return nil, nil, fmt.Errorf("list active debts: %w", err)
	}
	activeIncomes, err := p.ledger.ListActiveIncomes(ctx, ws.ID, month)
	if err != nil {
		return nil, nil, fmt.Errorf("list active incomes: %w", err)
	}

	used := map[string]bool{}
	build := func(src core.Source, overrides map[string]int64) (core.ViewItem, bool, error) {
		res := src.Schedule.Resolve(month.Time)
		if !res.Active {
			return core.ViewItem{}, false, nil
		}
		amount, overridden := overrides[src.ID]
		if overridden {
			used[src.ID] = true
		} else {
			var err error
			if amount, err = p.amount(ctx, ws, src); err != nil {
				return core.ViewItem{}, false, err
			}
		}
		return core.ViewItem{
			LineItem: core.LineItem{
				Kind:        src.Kind,
				SourceID:    src.ID,
				GroupID:     src.GroupID,
				AmountCents: amount,
				Ordinal:     res.Ordinal,
				Status:      core.StatusPending,
			},
			Name:         src.Name,
			Installments: src.Count,
			Open:         src.Schedule.Open,
		}, true, nil
	}

	for _, d := range activeDebts {
		item, ok, err := build(d.Source(), debtOverrides)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			debts = append(debts, item)
		}
	}
	for _, i := range activeIncomes {
		item, ok, err := build(i.Source(), incomeOverrides)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			incomes = append(incomes, item)
		}
	}

	for _, overrides := range []map[string]int64{debtOverrides, incomeOverrides} {
		for id := range overrides {
			if !used[id] {
				slog.WarnContext(ctx, "Override does not match an active source", "source_id", id, "month", month.String())
			}
		}
	}
	return debts, incomes, nil
}
