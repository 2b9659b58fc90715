package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fincycle/internal/core"
	"fincycle/internal/exchange"
	"fincycle/internal/storage"
)

// DeletionPolicy decides what happens to materialized line items of a source
// that was deleted or no longer covers a month.
type DeletionPolicy string

const (
	// DeletionIgnore leaves existing line items alone.
	DeletionIgnore DeletionPolicy = "ignore"
	// DeletionPrune removes the source's PENDING line items. PAID items are kept.
	DeletionPrune DeletionPolicy = "prune"
)

func (p DeletionPolicy) Validate() error {
	switch p {
	case DeletionIgnore, DeletionPrune:
		return nil
	default:
		return fmt.Errorf("invalid deletion policy %q (want ignore or prune)", p)
	}
}

const defaultSyncConcurrency = 4

// MonthError is a sync failure scoped to one month.
type MonthError struct {
	Month core.Date
	Err   error
}

func (e MonthError) Error() string { return fmt.Sprintf("%s: %v", e.Month, e.Err) }
func (e MonthError) Unwrap() error { return e.Err }

// SyncReport summarizes one Sync call.
type SyncReport struct {
	SourceID string
	Months   []core.Date
	Upserted int
	Skipped  int
	Pruned   int
	Failed   []MonthError
}

// Err joins the per-month failures, or nil when every month succeeded.
func (r SyncReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Synchronizer re-derives the line items of materialized cycles after a debt
// or income changes.
type Synchronizer struct {
	workspaces  storage.WorkspaceStore
	ledger      storage.LedgerStore
	cycles      storage.CycleStore
	planner     planner
	policy      DeletionPolicy
	concurrency int
	now         func() time.Time
	newID       func() string
}

func NewSynchronizer(store storage.Store, rates exchange.RateProvider, policy DeletionPolicy, concurrency int) *Synchronizer {
	if policy == "" {
		policy = DeletionIgnore
	}
	if concurrency < 1 {
		concurrency = defaultSyncConcurrency
	}
	return &Synchronizer{
		workspaces:  store,
		ledger:      store,
		cycles:      store,
		planner:     planner{ledger: store, rates: rates},
		policy:      policy,
		concurrency: concurrency,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Sync applies one change event. The current row is re-read from the store so
// replayed or out-of-order deliveries converge on the latest definition. Each
// month is processed independently; failures are collected in the report and
// returned joined.
func (s *Synchronizer) Sync(ctx context.Context, ev core.SyncEvent) (SyncReport, error) {
	if err := ev.Validate(); err != nil {
		return SyncReport{}, err
	}
	subject := ev.Subject()
	report := SyncReport{SourceID: subject.ID}

	var old *core.Source
	if ev.OldRecord != nil {
		src, err := ev.OldRecord.Source(ev.Table)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring unparseable old record", "source_id", subject.ID, "error", err)
		} else {
			old = &src
		}
	}

	if ev.Type == core.ChangeDelete {
		if s.policy != DeletionPrune {
			slog.InfoContext(ctx, "Source deleted, keeping materialized items", "table", ev.Table, "source_id", subject.ID)
			return report, nil
		}
		if old == nil && ev.Record != nil {
			if src, err := ev.Record.Source(ev.Table); err == nil {
				old = &src
			}
		}
		if old == nil {
			return report, core.Invalid("old_record", "deleted row is required to prune")
		}
		return s.run(ctx, nil, old, report)
	}

	current, ok, err := s.current(ctx, ev.Table, subject)
	if err != nil {
		return report, err
	}
	if !ok {
		slog.InfoContext(ctx, "Source no longer exists, nothing to sync", "table", ev.Table, "source_id", subject.ID)
		return report, nil
	}
	return s.run(ctx, &current, old, report)
}

// current loads the stored version of the event's row. ok is false when the
// row or its workspace is gone.
func (s *Synchronizer) current(ctx context.Context, table string, r *core.Record) (core.Source, bool, error) {
	var (
		src core.Source
		err error
	)
	switch table {
	case core.TableDebts:
		var d core.Debt
		d, err = s.ledger.GetDebt(ctx, r.WorkspaceID, r.ID)
		src = d.Source()
	case core.TableIncomes:
		var i core.Income
		i, err = s.ledger.GetIncome(ctx, r.WorkspaceID, r.ID)
		src = i.Source()
	}
	if errors.Is(err, core.ErrNotFound) {
		return core.Source{}, false, nil
	}
	if err != nil {
		return core.Source{}, false, fmt.Errorf("load %s %s: %w", table, r.ID, err)
	}
	return src, true, nil
}

type monthTask struct {
	month core.Date
	// active is set when the current definition covers the month.
	active bool
}

func (s *Synchronizer) run(ctx context.Context, current, old *core.Source, report SyncReport) (SyncReport, error) {
	now := s.now()
	seen := map[string]*monthTask{}
	if current != nil {
		for _, m := range current.Schedule.ActiveMonths(now) {
			seen[m.String()] = &monthTask{month: m, active: true}
		}
	}
	if old != nil {
		for _, m := range old.Schedule.ActiveMonths(now) {
			if _, ok := seen[m.String()]; !ok {
				seen[m.String()] = &monthTask{month: m}
			}
		}
	}
	tasks := make([]*monthTask, 0, len(seen))
	for _, t := range seen {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].month.Before(tasks[j].month.Time) })

	var workspaceID string
	if current != nil {
		workspaceID = current.WorkspaceID
	} else {
		workspaceID = old.WorkspaceID
	}
	ws, err := s.workspaces.GetWorkspace(ctx, workspaceID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Workspace not found, nothing to sync", "workspace_id", workspaceID)
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("load workspace: %w", err)
	}

	// The amount does not depend on the month; resolve it once, and only if a
	// cycle actually needs it.
	amount := sync.OnceValues(func() (int64, error) {
		return s.planner.amount(ctx, ws, *current)
	})

	sourceID := report.SourceID
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, t := range tasks {
		report.Months = append(report.Months, t.month)
		g.Go(func() error {
			outcome, n, err := s.syncMonth(gctx, ws.ID, sourceID, t, current, amount)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed = append(report.Failed, MonthError{Month: t.month, Err: err})
				slog.ErrorContext(ctx, "Month sync failed",
					"source_id", sourceID, "month", t.month.String(), "error", err)
			case outcome == outcomeUpserted:
				report.Upserted++
			case outcome == outcomePruned:
				report.Pruned += n
			default:
				report.Skipped++
			}
			// Month failures never cancel sibling months.
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Month.Before(report.Failed[j].Month.Time) })

	slog.InfoContext(ctx, "Source synchronized",
		"source_id", report.SourceID,
		"months", len(report.Months),
		"upserted", report.Upserted,
		"skipped", report.Skipped,
		"pruned", report.Pruned,
		"failed", len(report.Failed))

	return report, report.Err()
}

type monthOutcome int

const (
	outcomeSkipped monthOutcome = iota
	outcomeUpserted
	outcomePruned
)

func (s *Synchronizer) syncMonth(ctx context.Context, workspaceID, sourceID string, t *monthTask, current *core.Source, amount func() (int64, error)) (monthOutcome, int, error) {
	cycle, err := s.cycles.FindCycle(ctx, workspaceID, t.month)
	if errors.Is(err, core.ErrNotFound) {
		return outcomeSkipped, 0, nil
	}
	if err != nil {
		return outcomeSkipped, 0, fmt.Errorf("find cycle: %w", err)
	}

	if t.active && current != nil {
		res := current.Schedule.Resolve(t.month.Time)
		if res.Active {
			cents, err := amount()
			if err != nil {
				return outcomeSkipped, 0, err
			}
			_, err = s.cycles.UpsertLineItem(ctx, core.LineItem{
				ID:          s.newID(),
				CycleID:     cycle.ID,
				Kind:        current.Kind,
				SourceID:    current.ID,
				GroupID:     current.GroupID,
				AmountCents: cents,
				Ordinal:     res.Ordinal,
				Status:      core.StatusPending,
			})
			if err != nil {
				return outcomeSkipped, 0, fmt.Errorf("upsert line item: %w", err)
			}
			return outcomeUpserted, 1, nil
		}
	}

	if s.policy != DeletionPrune {
		return outcomeSkipped, 0, nil
	}
	n, err := s.cycles.DeleteLineItemsBySource(ctx, cycle.ID, sourceID, core.StatusPending)
	if err != nil {
		return outcomeSkipped, 0, fmt.Errorf("prune line items: %w", err)
	}
	return outcomePruned, n, nil
}
