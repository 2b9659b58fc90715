package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fincycle/internal/core"
	"fincycle/internal/exchange"
	"fincycle/internal/storage"
)

// KickstartPolicy decides what kickstarting an already materialized month does.
type KickstartPolicy string

const (
	// KickstartReject fails with core.ErrConflict.
	KickstartReject KickstartPolicy = "reject"
	// KickstartNoop returns the existing cycle untouched.
	KickstartNoop KickstartPolicy = "noop"
)

func (p KickstartPolicy) Validate() error {
	switch p {
	case KickstartReject, KickstartNoop:
		return nil
	default:
		return fmt.Errorf("invalid kickstart policy %q (want reject or noop)", p)
	}
}

// Override replaces the computed amount of one source, in base-currency minor units.
type Override struct {
	SourceID    string
	AmountMinor int64
}

type KickstartRequest struct {
	WorkspaceID     string
	Date            core.Date
	DebtOverrides   []Override
	IncomeOverrides []Override
}

type KickstartResult struct {
	Cycle   core.Cycle
	Items   []core.LineItem
	Created bool
}

// Materializer turns a month into a durable Cycle with its line items.
type Materializer struct {
	workspaces storage.WorkspaceStore
	cycles     storage.CycleStore
	planner    planner
	policy     KickstartPolicy
	now        func() time.Time
	newID      func() string
}

func NewMaterializer(store storage.Store, rates exchange.RateProvider, policy KickstartPolicy) *Materializer {
	if policy == "" {
		policy = KickstartReject
	}
	return &Materializer{
		workspaces: store,
		cycles:     store,
		planner:    planner{ledger: store, rates: rates},
		policy:     policy,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func overrideMap(field string, overrides []Override) (map[string]int64, error) {
	m := make(map[string]int64, len(overrides))
	for _, o := range overrides {
		if o.SourceID == "" {
			return nil, core.Invalid(field, "source id is required")
		}
		if o.AmountMinor < 0 {
			return nil, core.Invalid(field, fmt.Sprintf("amount for %s must not be negative", o.SourceID))
		}
		if _, dup := m[o.SourceID]; dup {
			return nil, core.Invalid(field, fmt.Sprintf("duplicate override for %s", o.SourceID))
		}
		m[o.SourceID] = o.AmountMinor
	}
	return m, nil
}

// Kickstart materializes the month containing req.Date. Every amount is
// resolved before the first write; if the line items cannot be stored the
// cycle row is deleted again so no partial cycle stays visible.
func (m *Materializer) Kickstart(ctx context.Context, req KickstartRequest) (KickstartResult, error) {
	if req.Date.IsZero() {
		return KickstartResult{}, core.Invalid("date", "date is required")
	}
	debtOverrides, err := overrideMap("debtsOverride", req.DebtOverrides)
	if err != nil {
		return KickstartResult{}, err
	}
	incomeOverrides, err := overrideMap("incomesOverride", req.IncomeOverrides)
	if err != nil {
		return KickstartResult{}, err
	}

	ws, err := m.workspaces.GetWorkspace(ctx, req.WorkspaceID)
	if err != nil {
		return KickstartResult{}, err
	}
	month := core.MonthStart(req.Date.Time)

	existing, err := m.cycles.FindCycle(ctx, ws.ID, month)
	switch {
	case err == nil:
		return m.existing(ctx, existing)
	case !errors.Is(err, core.ErrNotFound):
		return KickstartResult{}, fmt.Errorf("find cycle: %w", err)
	}

	debts, incomes, err := m.planner.plan(ctx, ws, month, debtOverrides, incomeOverrides)
	if err != nil {
		return KickstartResult{}, fmt.Errorf("plan cycle %s: %w", month, err)
	}

	cycle := core.Cycle{ID: m.newID(), WorkspaceID: ws.ID, Month: month, CreatedAt: m.now().UTC()}
	items := make([]core.LineItem, 0, len(debts)+len(incomes))
	for _, group := range [][]core.ViewItem{debts, incomes} {
		for _, v := range group {
			it := v.LineItem
			it.ID = m.newID()
			it.CycleID = cycle.ID
			items = append(items, it)
		}
	}

	if err := m.cycles.CreateCycle(ctx, cycle); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// Lost a race with a concurrent kickstart of the same month.
			if found, ferr := m.cycles.FindCycle(ctx, ws.ID, month); ferr == nil {
				return m.existing(ctx, found)
			}
		}
		return KickstartResult{}, fmt.Errorf("create cycle: %w", err)
	}

	if err := m.cycles.InsertLineItems(ctx, items); err != nil {
		if derr := m.cycles.DeleteCycle(ctx, cycle.ID); derr != nil {
			slog.ErrorContext(ctx, "Failed to roll back partial cycle",
				"cycle_id", cycle.ID, "workspace_id", ws.ID, "error", derr)
			return KickstartResult{}, fmt.Errorf("insert line items: %w (rollback failed: %v)", err, derr)
		}
		slog.WarnContext(ctx, "Rolled back cycle after line item failure",
			"cycle_id", cycle.ID, "workspace_id", ws.ID, "error", err)
		return KickstartResult{}, fmt.Errorf("insert line items: %w", err)
	}

	slog.InfoContext(ctx, "Cycle materialized",
		"cycle_id", cycle.ID,
		"workspace_id", ws.ID,
		"month", month.String(),
		"debts", len(debts),
		"incomes", len(incomes))

	return KickstartResult{Cycle: cycle, Items: items, Created: true}, nil
}

func (m *Materializer) existing(ctx context.Context, c core.Cycle) (KickstartResult, error) {
	if m.policy != KickstartNoop {
		return KickstartResult{}, core.Conflict("cycle for %s already exists", c.Month)
	}
	items, err := m.cycles.ListLineItems(ctx, c.ID)
	if err != nil {
		return KickstartResult{}, fmt.Errorf("list line items: %w", err)
	}
	slog.InfoContext(ctx, "Cycle already materialized", "cycle_id", c.ID, "month", c.Month.String())
	return KickstartResult{Cycle: c, Items: items, Created: false}, nil
}
