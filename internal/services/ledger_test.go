package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"fincycle/internal/core"
	"fincycle/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.SyncEvent
}

func (p *recordingPublisher) PublishSync(_ context.Context, ev core.SyncEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Table + ":" + string(ev.Type)
	}
	return out
}

func TestLedger_DebtEmitsSyncTriggers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewLedgerService(f.store, pub)

	in := DebtInput{OwnerID: f.owner.ID, Name: " Phone ", Amount: core.Money{Cents: 3000, Currency: "brl"},
		FirstPaymentDate: core.NewDate(2025, 1, 31), HasEnd: true, Installments: 3}
	d, err := svc.CreateDebt(ctx, testWorkspace, in)
	require.NoError(t, err)
	require.Equal(t, "Phone", d.Name)
	require.Equal(t, "BRL", d.Amount.Currency)
	require.Equal(t, "2025-03-31", d.EndDate.String())

	in.Installments = 2
	_, err = svc.UpdateDebt(ctx, testWorkspace, d.ID, in)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDebt(ctx, testWorkspace, d.ID))

	require.Equal(t, []string{"debts:INSERT", "debts:UPDATE", "debts:DELETE"}, pub.kinds())
	update := pub.events[1]
	require.Equal(t, 2, update.Record.Installments)
	require.Equal(t, 3, update.OldRecord.Installments)

	_, err = svc.GetDebt(ctx, testWorkspace, d.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedger_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewLedgerService(f.store, pub)

	tests := []struct {
		name string
		in   DebtInput
	}{
		{"unknown owner", DebtInput{OwnerID: "nobody", Name: "x", Amount: brl(1), FirstPaymentDate: core.NewDate(2025, 1, 1)}},
		{"payer as owner", DebtInput{OwnerID: f.payer.ID, Name: "x", Amount: brl(1), FirstPaymentDate: core.NewDate(2025, 1, 1)}},
		{"zero amount", DebtInput{OwnerID: f.owner.ID, Name: "x", Amount: brl(0), FirstPaymentDate: core.NewDate(2025, 1, 1)}},
		{"missing installments", DebtInput{OwnerID: f.owner.ID, Name: "x", Amount: brl(1), FirstPaymentDate: core.NewDate(2025, 1, 1), HasEnd: true}},
		{"reimbursement by owner", DebtInput{OwnerID: f.owner.ID, Name: "x", Amount: brl(1), FirstPaymentDate: core.NewDate(2025, 1, 1),
			Reimbursement: &Reimbursement{PayerID: f.owner.ID}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateDebt(ctx, testWorkspace, tt.in)
			require.ErrorIs(t, err, core.ErrValidation)
		})
	}
	require.Empty(t, pub.kinds())
}

func TestLedger_Counterparties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewLedgerService(f.store, &recordingPublisher{})

	c, err := svc.CreateCounterparty(ctx, testWorkspace, core.KindIncome, "Client")
	require.NoError(t, err)
	payers, err := svc.ListCounterparties(ctx, testWorkspace, core.KindIncome)
	require.NoError(t, err)
	require.Len(t, payers, 2)

	require.ErrorIs(t, svc.DeleteCounterparty(ctx, testWorkspace, core.KindDebt, c.ID), core.ErrNotFound)
	require.NoError(t, svc.DeleteCounterparty(ctx, testWorkspace, core.KindIncome, c.ID))

	f.addDebt(t, core.Debt{ID: "phone", Amount: brl(100), FirstPaymentDate: core.NewDate(2025, 1, 1)})
	require.ErrorIs(t, svc.DeleteCounterparty(ctx, testWorkspace, core.KindDebt, f.owner.ID), core.ErrConflict)

	_, err = svc.CreateCounterparty(ctx, testWorkspace, "vendor", "x")
	require.ErrorIs(t, err, core.ErrValidation)
}

// With an inline publisher a ledger edit is visible in the materialized cycle
// as soon as the call returns.
func TestLedger_ReimbursementLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	feb := kickstart(t, f, core.NewDate(2025, 2, 1))
	svc := NewLedgerService(f.store, NewInlinePublisher(f.synchronizer(DeletionPrune, syncNow)))

	in := DebtInput{OwnerID: f.owner.ID, Name: "Dinner", Amount: brl(9000),
		FirstPaymentDate: core.NewDate(2025, 2, 5), HasEnd: true, Installments: 1,
		Reimbursement: &Reimbursement{PayerID: f.payer.ID, AmountCents: 4500}}
	d, err := svc.CreateDebt(ctx, testWorkspace, in)
	require.NoError(t, err)
	require.NotEmpty(t, d.ReimbursementIncomeID)

	inc, err := svc.GetIncome(ctx, testWorkspace, d.ReimbursementIncomeID)
	require.NoError(t, err)
	require.Equal(t, "Reimbursement for Dinner", inc.Name)
	require.False(t, inc.IsRecurrent)
	require.Equal(t, 1, inc.NumberOfPayments)

	items := mustItems(t, f, feb.ID)
	require.Len(t, items, 2)
	require.Equal(t, int64(4500), itemBySource(t, items, inc.ID).AmountCents)

	in.Reimbursement.AmountCents = 6000
	d, err = svc.UpdateDebt(ctx, testWorkspace, d.ID, in)
	require.NoError(t, err)
	require.Equal(t, inc.ID, d.ReimbursementIncomeID)
	require.Equal(t, int64(6000), itemBySource(t, mustItems(t, f, feb.ID), inc.ID).AmountCents)

	in.Reimbursement = nil
	d, err = svc.UpdateDebt(ctx, testWorkspace, d.ID, in)
	require.NoError(t, err)
	require.Empty(t, d.ReimbursementIncomeID)
	_, err = svc.GetIncome(ctx, testWorkspace, inc.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
	items = mustItems(t, f, feb.ID)
	require.Len(t, items, 1)
	require.Equal(t, d.ID, items[0].SourceID)

	require.NoError(t, svc.DeleteDebt(ctx, testWorkspace, d.ID))
	require.Empty(t, mustItems(t, f, feb.ID))
}

func TestLedger_IncomeCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewLedgerService(f.store, pub)

	in := IncomeInput{PayerID: f.payer.ID, Name: "Salary", Amount: brl(500000), FirstIncomeDate: core.NewDate(2025, 1, 5), IsRecurrent: true}
	i, err := svc.CreateIncome(ctx, testWorkspace, in)
	require.NoError(t, err)
	require.True(t, i.EndDate.IsZero())

	in.IsRecurrent = false
	in.NumberOfPayments = 12
	i, err = svc.UpdateIncome(ctx, testWorkspace, i.ID, in)
	require.NoError(t, err)
	require.Equal(t, "2025-12-05", i.EndDate.String())

	list, err := svc.ListIncomes(ctx, testWorkspace)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteIncome(ctx, testWorkspace, i.ID))
	require.ErrorIs(t, svc.DeleteIncome(ctx, testWorkspace, i.ID), core.ErrNotFound)
	require.Equal(t, []string{"incomes:INSERT", "incomes:UPDATE", "incomes:DELETE"}, pub.kinds())
}

// flakyLedger fails the selected writes and delegates everything else.
type flakyLedger struct {
	*memory.Store
	failUpdateDebt   bool
	failDeleteDebt   bool
	failDeleteIncome bool
}

func (l *flakyLedger) UpdateDebt(ctx context.Context, d core.Debt) error {
	if l.failUpdateDebt {
		return errStoreDown
	}
	return l.Store.UpdateDebt(ctx, d)
}

func (l *flakyLedger) DeleteDebt(ctx context.Context, workspaceID, id string) error {
	if l.failDeleteDebt {
		return errStoreDown
	}
	return l.Store.DeleteDebt(ctx, workspaceID, id)
}

func (l *flakyLedger) DeleteIncome(ctx context.Context, workspaceID, id string) error {
	if l.failDeleteIncome {
		return errStoreDown
	}
	return l.Store.DeleteIncome(ctx, workspaceID, id)
}

func TestLedger_FailedDebtWriteKeepsReimbursementConsistent(t *testing.T) {
	dinner := func(f *fixture, r *Reimbursement) DebtInput {
		return DebtInput{OwnerID: f.owner.ID, Name: "Dinner", Amount: brl(9000),
			FirstPaymentDate: core.NewDate(2025, 2, 5), HasEnd: true, Installments: 1, Reimbursement: r}
	}
	reimbursed := func(amount int64) func(*fixture) *Reimbursement {
		return func(f *fixture) *Reimbursement { return &Reimbursement{PayerID: f.payer.ID, AmountCents: amount} }
	}
	unreimbursed := func(*fixture) *Reimbursement { return nil }
	setup := func(t *testing.T, r func(*fixture) *Reimbursement) (*fixture, *flakyLedger, *LedgerService, *recordingPublisher, core.Debt) {
		t.Helper()
		f := newFixture(t)
		store := &flakyLedger{Store: f.store}
		pub := &recordingPublisher{}
		svc := NewLedgerService(store, pub)
		d, err := svc.CreateDebt(context.Background(), testWorkspace, dinner(f, r(f)))
		require.NoError(t, err)
		return f, store, svc, pub, d
	}
	incomes := func(t *testing.T, svc *LedgerService) []core.Income {
		t.Helper()
		list, err := svc.ListIncomes(context.Background(), testWorkspace)
		require.NoError(t, err)
		return list
	}
	ctx := context.Background()

	t.Run("new reimbursement is removed", func(t *testing.T) {
		f, store, svc, pub, d := setup(t, unreimbursed)
		store.failUpdateDebt = true

		_, err := svc.UpdateDebt(ctx, testWorkspace, d.ID, dinner(f, &Reimbursement{PayerID: f.payer.ID}))
		require.ErrorIs(t, err, errStoreDown)
		require.Empty(t, incomes(t, svc))

		got, err := svc.GetDebt(ctx, testWorkspace, d.ID)
		require.NoError(t, err)
		require.Empty(t, got.ReimbursementIncomeID)
		require.Equal(t, []string{"debts:INSERT"}, pub.kinds())
	})

	t.Run("changed reimbursement is restored", func(t *testing.T) {
		f, store, svc, _, d := setup(t, reimbursed(4500))
		store.failUpdateDebt = true

		_, err := svc.UpdateDebt(ctx, testWorkspace, d.ID, dinner(f, &Reimbursement{PayerID: f.payer.ID, AmountCents: 3000}))
		require.ErrorIs(t, err, errStoreDown)
		inc, err := svc.GetIncome(ctx, testWorkspace, d.ReimbursementIncomeID)
		require.NoError(t, err)
		require.Equal(t, int64(4500), inc.Amount.Cents)
	})

	t.Run("dropped reimbursement keeps the debt link", func(t *testing.T) {
		f, store, svc, _, d := setup(t, reimbursed(0))
		store.failDeleteIncome = true

		_, err := svc.UpdateDebt(ctx, testWorkspace, d.ID, dinner(f, nil))
		require.ErrorIs(t, err, errStoreDown)
		got, err := svc.GetDebt(ctx, testWorkspace, d.ID)
		require.NoError(t, err)
		require.Equal(t, d.ReimbursementIncomeID, got.ReimbursementIncomeID)
		require.Len(t, incomes(t, svc), 1)
	})

	t.Run("failed debt delete restores the reimbursement", func(t *testing.T) {
		_, store, svc, pub, d := setup(t, reimbursed(0))
		store.failDeleteDebt = true

		require.ErrorIs(t, svc.DeleteDebt(ctx, testWorkspace, d.ID), errStoreDown)
		_, err := svc.GetDebt(ctx, testWorkspace, d.ID)
		require.NoError(t, err)
		_, err = svc.GetIncome(ctx, testWorkspace, d.ReimbursementIncomeID)
		require.NoError(t, err)
		require.Equal(t, []string{"debts:INSERT", "incomes:INSERT"}, pub.kinds())
	})

	t.Run("failed income delete keeps the debt", func(t *testing.T) {
		_, store, svc, _, d := setup(t, reimbursed(0))
		store.failDeleteIncome = true

		require.ErrorIs(t, svc.DeleteDebt(ctx, testWorkspace, d.ID), errStoreDown)
		_, err := svc.GetDebt(ctx, testWorkspace, d.ID)
		require.NoError(t, err)
		require.Len(t, incomes(t, svc), 1)
	})
}
