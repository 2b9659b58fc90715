package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"fincycle/internal/core"
	applog "fincycle/internal/log"
	"fincycle/internal/storage"
)

// Reimbursement links an income to a debt: someone pays the debt back.
type Reimbursement struct {
	PayerID string
	// AmountCents defaults to the debt amount when zero.
	AmountCents int64
}

// DebtInput is a debt as submitted by a client.
type DebtInput struct {
	OwnerID          string
	Name             string
	Amount           core.Money
	PurchasedAt      core.Date
	FirstPaymentDate core.Date
	HasEnd           bool
	Installments     int
	Reimbursement    *Reimbursement
}

// IncomeInput is an income as submitted by a client.
type IncomeInput struct {
	PayerID          string
	Name             string
	Amount           core.Money
	FirstIncomeDate  core.Date
	IsRecurrent      bool
	NumberOfPayments int
}

// LedgerService manages counterparties, debts and incomes. Every debt or income
// mutation emits a sync trigger.
type LedgerService struct {
	ledger    storage.LedgerStore
	publisher SyncPublisher
	newID     func() string
}

func NewLedgerService(ledger storage.LedgerStore, publisher SyncPublisher) *LedgerService {
	return &LedgerService{ledger: ledger, publisher: publisher, newID: uuid.NewString}
}

// Counterparties

func (s *LedgerService) CreateCounterparty(ctx context.Context, workspaceID string, kind core.Kind, name string) (core.Counterparty, error) {
	c := core.Counterparty{ID: s.newID(), WorkspaceID: workspaceID, Kind: kind, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Counterparty{}, err
	}
	if err := s.ledger.CreateCounterparty(ctx, c); err != nil {
		return core.Counterparty{}, fmt.Errorf("save counterparty: %w", err)
	}
	return c, nil
}

func (s *LedgerService) ListCounterparties(ctx context.Context, workspaceID string, kind core.Kind) ([]core.Counterparty, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	return s.ledger.ListCounterparties(ctx, workspaceID, kind)
}

func (s *LedgerService) DeleteCounterparty(ctx context.Context, workspaceID string, kind core.Kind, id string) error {
	c, err := s.ledger.GetCounterparty(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if c.Kind != kind {
		return core.NotFound("counterparty", id)
	}
	return s.ledger.DeleteCounterparty(ctx, workspaceID, id)
}

func (s *LedgerService) requireCounterparty(ctx context.Context, workspaceID, id string, kind core.Kind) error {
	c, err := s.ledger.GetCounterparty(ctx, workspaceID, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Invalid(string(kind)+"_counterparty", fmt.Sprintf("unknown counterparty %s", id))
	}
	if err != nil {
		return err
	}
	if c.Kind != kind {
		return core.Invalid(string(kind)+"_counterparty", fmt.Sprintf("counterparty %s is not a %s counterparty", id, kind))
	}
	return nil
}

// Debts

func (in DebtInput) debt(workspaceID, id string) core.Debt {
	amount := in.Amount
	amount.Currency = strings.ToUpper(strings.TrimSpace(amount.Currency))
	return core.Debt{
		ID:               id,
		WorkspaceID:      workspaceID,
		OwnerID:          in.OwnerID,
		Name:             strings.TrimSpace(in.Name),
		Amount:           amount,
		PurchasedAt:      in.PurchasedAt,
		FirstPaymentDate: in.FirstPaymentDate,
		HasEnd:           in.HasEnd,
		Installments:     in.Installments,
	}.WithDerivedEnd()
}

// reimbursementIncome builds the income mirroring d's schedule.
func reimbursementIncome(d core.Debt, r Reimbursement, id string) core.Income {
	amount := r.AmountCents
	if amount == 0 {
		amount = d.Amount.Cents
	}
	inc := core.Income{
		ID:              id,
		WorkspaceID:     d.WorkspaceID,
		PayerID:         r.PayerID,
		Name:            "Reimbursement for " + d.Name,
		Amount:          core.Money{Cents: amount, Currency: d.Amount.Currency},
		FirstIncomeDate: d.FirstPaymentDate,
		IsRecurrent:     !d.HasEnd,
	}
	if d.HasEnd {
		inc.NumberOfPayments = d.Installments
	}
	return inc.WithDerivedEnd()
}

func (s *LedgerService) validateDebt(ctx context.Context, d core.Debt, r *Reimbursement) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := s.requireCounterparty(ctx, d.WorkspaceID, d.OwnerID, core.KindDebt); err != nil {
		return err
	}
	if r != nil {
		if r.AmountCents < 0 {
			return core.Invalid("reimbursement.amount", "must not be negative")
		}
		if err := s.requireCounterparty(ctx, d.WorkspaceID, r.PayerID, core.KindIncome); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerService) CreateDebt(ctx context.Context, workspaceID string, in DebtInput) (core.Debt, error) {
	d := in.debt(workspaceID, s.newID())
	if err := s.validateDebt(ctx, d, in.Reimbursement); err != nil {
		return core.Debt{}, err
	}

	var inc *core.Income
	if in.Reimbursement != nil {
		i := reimbursementIncome(d, *in.Reimbursement, s.newID())
		if err := s.ledger.CreateIncome(ctx, i); err != nil {
			return core.Debt{}, fmt.Errorf("save reimbursement: %w", err)
		}
		d.ReimbursementIncomeID = i.ID
		inc = &i
	}
	if err := s.ledger.CreateDebt(ctx, d); err != nil {
		if inc != nil {
			s.undo(ctx, "remove reimbursement", inc.ID, func(ctx context.Context) error {
				return s.ledger.DeleteIncome(ctx, workspaceID, inc.ID)
			})
		}
		return core.Debt{}, fmt.Errorf("save debt: %w", err)
	}

	slog.InfoContext(ctx, "Debt created", applog.FieldOperation, applog.OpCreate, "debt_id", d.ID, "workspace_id", workspaceID)
	publish(ctx, s.publisher, core.SyncEvent{Table: core.TableDebts, Type: core.ChangeInsert, Record: core.DebtRecord(d)})
	if inc != nil {
		publish(ctx, s.publisher, core.SyncEvent{Table: core.TableIncomes, Type: core.ChangeInsert, Record: core.IncomeRecord(*inc)})
	}
	return d, nil
}

func (s *LedgerService) UpdateDebt(ctx context.Context, workspaceID, id string, in DebtInput) (core.Debt, error) {
	old, err := s.ledger.GetDebt(ctx, workspaceID, id)
	if err != nil {
		return core.Debt{}, err
	}
	d := in.debt(workspaceID, id)
	if err := s.validateDebt(ctx, d, in.Reimbursement); err != nil {
		return core.Debt{}, err
	}

	// rollback reverts the reimbursement write when the debt write fails.
	var rollback func(context.Context) error
	var events []core.SyncEvent
	switch {
	case in.Reimbursement != nil && old.ReimbursementIncomeID != "":
		prev, err := s.ledger.GetIncome(ctx, workspaceID, old.ReimbursementIncomeID)
		if err != nil {
			return core.Debt{}, fmt.Errorf("load reimbursement: %w", err)
		}
		inc := reimbursementIncome(d, *in.Reimbursement, prev.ID)
		if err := s.ledger.UpdateIncome(ctx, inc); err != nil {
			return core.Debt{}, fmt.Errorf("update reimbursement: %w", err)
		}
		rollback = func(ctx context.Context) error { return s.ledger.UpdateIncome(ctx, prev) }
		d.ReimbursementIncomeID = inc.ID
		events = append(events, core.SyncEvent{Table: core.TableIncomes, Type: core.ChangeUpdate,
			Record: core.IncomeRecord(inc), OldRecord: core.IncomeRecord(prev)})
	case in.Reimbursement != nil:
		inc := reimbursementIncome(d, *in.Reimbursement, s.newID())
		if err := s.ledger.CreateIncome(ctx, inc); err != nil {
			return core.Debt{}, fmt.Errorf("save reimbursement: %w", err)
		}
		rollback = func(ctx context.Context) error { return s.ledger.DeleteIncome(ctx, workspaceID, inc.ID) }
		d.ReimbursementIncomeID = inc.ID
		events = append(events, core.SyncEvent{Table: core.TableIncomes, Type: core.ChangeInsert, Record: core.IncomeRecord(inc)})
	case old.ReimbursementIncomeID != "":
		prev, err := s.ledger.GetIncome(ctx, workspaceID, old.ReimbursementIncomeID)
		if err == nil {
			events = append(events, core.SyncEvent{Table: core.TableIncomes, Type: core.ChangeDelete,
				Record: core.IncomeRecord(prev), OldRecord: core.IncomeRecord(prev)})
		}
	}

	if err := s.ledger.UpdateDebt(ctx, d); err != nil {
		if rollback != nil {
			s.undo(ctx, "revert reimbursement", d.ID, rollback)
		}
		return core.Debt{}, fmt.Errorf("update debt: %w", err)
	}
	if in.Reimbursement == nil && old.ReimbursementIncomeID != "" {
		if err := s.ledger.DeleteIncome(ctx, workspaceID, old.ReimbursementIncomeID); err != nil && !errors.Is(err, core.ErrNotFound) {
			s.undo(ctx, "restore debt", d.ID, func(ctx context.Context) error { return s.ledger.UpdateDebt(ctx, old) })
			return core.Debt{}, fmt.Errorf("delete reimbursement: %w", err)
		}
	}

	slog.InfoContext(ctx, "Debt updated", applog.FieldOperation, applog.OpUpdate, "debt_id", d.ID, "workspace_id", workspaceID)
	publish(ctx, s.publisher, core.SyncEvent{Table: core.TableDebts, Type: core.ChangeUpdate,
		Record: core.DebtRecord(d), OldRecord: core.DebtRecord(old)})
	for _, ev := range events {
		publish(ctx, s.publisher, ev)
	}
	return d, nil
}

// DeleteDebt removes the reimbursement income before the debt, so a failed
// debt delete never leaves an income without its debt.
func (s *LedgerService) DeleteDebt(ctx context.Context, workspaceID, id string) error {
	d, err := s.ledger.GetDebt(ctx, workspaceID, id)
	if err != nil {
		return err
	}

	var inc *core.Income
	if d.ReimbursementIncomeID != "" {
		i, err := s.ledger.GetIncome(ctx, workspaceID, d.ReimbursementIncomeID)
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return fmt.Errorf("load reimbursement: %w", err)
		default:
			if err := s.ledger.DeleteIncome(ctx, workspaceID, i.ID); err != nil {
				return fmt.Errorf("delete reimbursement: %w", err)
			}
			inc = &i
		}
	}
	if err := s.ledger.DeleteDebt(ctx, workspaceID, id); err != nil {
		if inc != nil {
			s.undo(ctx, "restore reimbursement", inc.ID, func(ctx context.Context) error {
				return s.ledger.CreateIncome(ctx, *inc)
			})
		}
		return fmt.Errorf("delete debt: %w", err)
	}

	publish(ctx, s.publisher, core.SyncEvent{Table: core.TableDebts, Type: core.ChangeDelete,
		Record: core.DebtRecord(d), OldRecord: core.DebtRecord(d)})
	if inc != nil {
		publish(ctx, s.publisher, core.SyncEvent{Table: core.TableIncomes, Type: core.ChangeDelete,
			Record: core.IncomeRecord(*inc), OldRecord: core.IncomeRecord(*inc)})
	}
	slog.InfoContext(ctx, "Debt deleted", applog.FieldOperation, applog.OpDelete, "debt_id", id, "workspace_id", workspaceID)
	return nil
}

// undo runs a compensating write. It outlives a cancelled request so a
// client disconnect cannot leave the ledger half written.
func (s *LedgerService) undo(ctx context.Context, step, id string, fn func(context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "Failed to undo ledger write", "step", step, "id", id, "error", err)
	}
}

func (s *LedgerService) GetDebt(ctx context.Context, workspaceID, id string) (core.Debt, error) {
	return s.ledger.GetDebt(ctx, workspaceID, id)
}

func (s *LedgerService) ListDebts(ctx context.Context, workspaceID string) ([]core.Debt, error) {
	return s.ledger.ListDebts(ctx, workspaceID)
}

// Incomes

func (in IncomeInput) income(workspaceID, id string) core.Income {
	amount := in.Amount
	amount.Currency = strings.ToUpper(strings.TrimSpace(amount.Currency))
	return core.Income{
		ID:               id,
		WorkspaceID:      workspaceID,
		PayerID:          in.PayerID,
		Name:             strings.TrimSpace(in.Name),
		Amount:           amount,
		FirstIncomeDate:  in.FirstIncomeDate,
		IsRecurrent:      in.IsRecurrent,
		NumberOfPayments: in.NumberOfPayments,
	}.WithDerivedEnd()
}

func (s *LedgerService) validateIncome(ctx context.Context, i core.Income) error {
	if err := i.Validate(); err != nil {
		return err
	}
	return s.requireCounterparty(ctx, i.WorkspaceID, i.PayerID, core.KindIncome)
}

func (s *LedgerService) CreateIncome(ctx context.Context, workspaceID string, in IncomeInput) (core.Income, error) {
	i := in.income(workspaceID, s.newID())
	if err := s.validateIncome(ctx, i); err != nil {
		return core.Income{}, err
	}
	if err := s.ledger.CreateIncome(ctx, i); err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	slog.InfoContext(ctx, "Income created", applog.FieldOperation, applog.OpCreate, "income_id", i.ID, "workspace_id", workspaceID)
	publish(ctx, s.publisher, core.SyncEvent{Table: core.TableIncomes, Type: core.ChangeInsert, Record: core.IncomeRecord(i)})
	return i, nil
}

func (s *LedgerService) UpdateIncome(ctx context.Context, workspaceID, id string, in IncomeInput) (core.Income, error) {
	old, err := s.ledger.GetIncome(ctx, workspaceID, id)
	if err != nil {
		return core.Income{}, err
	}
	i := in.income(workspaceID, id)
	if err := s.validateIncome(ctx, i); err != nil {
		return core.Income{}, err
	}
	if err := s.ledger.UpdateIncome(ctx, i); err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	slog.InfoContext(ctx, "Income updated", applog.FieldOperation, applog.OpUpdate, "income_id", i.ID, "workspace_id", workspaceID)
	publish(ctx, s.publisher, core.SyncEvent{Table: core.TableIncomes, Type: core.ChangeUpdate,
		Record: core.IncomeRecord(i), OldRecord: core.IncomeRecord(old)})
	return i, nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, workspaceID, id string) error {
	i, err := s.ledger.GetIncome(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteIncome(ctx, workspaceID, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	slog.InfoContext(ctx, "Income deleted", applog.FieldOperation, applog.OpDelete, "income_id", id, "workspace_id", workspaceID)
	publish(ctx, s.publisher, core.SyncEvent{Table: core.TableIncomes, Type: core.ChangeDelete,
		Record: core.IncomeRecord(i), OldRecord: core.IncomeRecord(i)})
	return nil
}

func (s *LedgerService) GetIncome(ctx context.Context, workspaceID, id string) (core.Income, error) {
	return s.ledger.GetIncome(ctx, workspaceID, id)
}

func (s *LedgerService) ListIncomes(ctx context.Context, workspaceID string) ([]core.Income, error) {
	return s.ledger.ListIncomes(ctx, workspaceID)
}
