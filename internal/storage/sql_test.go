package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fincycle/internal/core"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "fincycle.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedWorkspace(t *testing.T, s *SQLStore) (core.Workspace, core.Counterparty) {
	t.Helper()
	ctx := context.Background()
	ws := core.Workspace{ID: "ws-1", DefaultCurrency: "BRL", CreatedAt: time.Now()}
	if err := s.CreateWorkspace(ctx, ws, core.Member{ID: "m-1", Email: "a@example.com"}, "hash-1"); err != nil {
		t.Fatalf("CreateWorkspace() error: %v", err)
	}
	owner := core.Counterparty{ID: "owner-1", WorkspaceID: ws.ID, Kind: core.KindDebt, Name: "Nubank"}
	if err := s.CreateCounterparty(ctx, owner); err != nil {
		t.Fatalf("CreateCounterparty() error: %v", err)
	}
	return ws, owner
}

func TestRebind(t *testing.T) {
	got := DialectPostgres.rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	if want := "SELECT * FROM t WHERE a = $1 AND b = $2"; got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	if got := DialectSQLite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind should be identity, got %q", got)
	}
}

func TestMemberByTokenHash(t *testing.T) {
	s := newTestStore(t)
	seedWorkspace(t, s)

	m, err := s.MemberByTokenHash(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("MemberByTokenHash() error: %v", err)
	}
	if m.WorkspaceID != "ws-1" {
		t.Fatalf("workspace = %q, want ws-1", m.WorkspaceID)
	}
	if _, err := s.MemberByTokenHash(context.Background(), "nope"); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("unknown token error = %v, want ErrUnauthorized", err)
	}
}

func TestListActiveDebts(t *testing.T) {
	s := newTestStore(t)
	ws, owner := seedWorkspace(t, s)
	ctx := context.Background()

	debts := []core.Debt{
		{ID: "bounded", OwnerID: owner.ID, Name: "Phone", FirstPaymentDate: core.NewDate(2025, 1, 1), HasEnd: true, Installments: 3},
		{ID: "open", OwnerID: owner.ID, Name: "Gym", FirstPaymentDate: core.NewDate(2024, 6, 10)},
		{ID: "future", OwnerID: owner.ID, Name: "Trip", FirstPaymentDate: core.NewDate(2025, 7, 1), HasEnd: true, Installments: 1},
	}
	for _, d := range debts {
		d.WorkspaceID = ws.ID
		d.Amount = core.Money{Cents: 1000, Currency: "BRL"}
		if err := s.CreateDebt(ctx, d.WithDerivedEnd()); err != nil {
			t.Fatalf("CreateDebt(%s) error: %v", d.ID, err)
		}
	}

	tests := []struct {
		month core.Date
		want  []string
	}{
		{core.NewDate(2024, 12, 1), []string{"open"}},
		{core.NewDate(2025, 1, 1), []string{"bounded", "open"}},
		{core.NewDate(2025, 3, 1), []string{"bounded", "open"}},
		{core.NewDate(2025, 4, 1), []string{"open"}},
		{core.NewDate(2025, 7, 1), []string{"open", "future"}},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			got, err := s.ListActiveDebts(ctx, ws.ID, tt.month)
			if err != nil {
				t.Fatalf("ListActiveDebts() error: %v", err)
			}
			ids := map[string]bool{}
			for _, d := range got {
				ids[d.ID] = true
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d debts, want %v", len(got), tt.want)
			}
			for _, id := range tt.want {
				if !ids[id] {
					t.Errorf("missing %s", id)
				}
			}
		})
	}
}

func TestCreateCycleConflict(t *testing.T) {
	s := newTestStore(t)
	ws, _ := seedWorkspace(t, s)
	ctx := context.Background()

	c := core.Cycle{ID: "c-1", WorkspaceID: ws.ID, Month: core.NewDate(2025, 3, 1), CreatedAt: time.Now()}
	if err := s.CreateCycle(ctx, c); err != nil {
		t.Fatalf("CreateCycle() error: %v", err)
	}
	dup := core.Cycle{ID: "c-2", WorkspaceID: ws.ID, Month: core.NewDate(2025, 3, 15), CreatedAt: time.Now()}
	if err := s.CreateCycle(ctx, dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate CreateCycle() error = %v, want ErrConflict", err)
	}

	found, err := s.FindCycle(ctx, ws.ID, core.NewDate(2025, 3, 20))
	if err != nil {
		t.Fatalf("FindCycle() error: %v", err)
	}
	if found.ID != "c-1" {
		t.Fatalf("found cycle %s, want c-1", found.ID)
	}
	if _, err := s.FindCycle(ctx, ws.ID, core.NewDate(2025, 4, 1)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("FindCycle() for missing month error = %v, want ErrNotFound", err)
	}
}

func TestUpsertLineItemKeepsStatus(t *testing.T) {
	s := newTestStore(t)
	ws, owner := seedWorkspace(t, s)
	ctx := context.Background()

	c := core.Cycle{ID: "c-1", WorkspaceID: ws.ID, Month: core.NewDate(2025, 3, 1), CreatedAt: time.Now()}
	if err := s.CreateCycle(ctx, c); err != nil {
		t.Fatalf("CreateCycle() error: %v", err)
	}

	item := core.LineItem{ID: "li-1", CycleID: c.ID, Kind: core.KindDebt, SourceID: "debt-1",
		GroupID: owner.ID, AmountCents: 1000, Ordinal: 1, Status: core.StatusPending}
	if err := s.InsertLineItems(ctx, []core.LineItem{item}); err != nil {
		t.Fatalf("InsertLineItems() error: %v", err)
	}
	if err := s.SetLineItemStatus(ctx, item.ID, core.StatusPaid); err != nil {
		t.Fatalf("SetLineItemStatus() error: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := s.UpsertLineItem(ctx, core.LineItem{ID: "li-other", CycleID: c.ID, Kind: core.KindDebt,
			SourceID: "debt-1", GroupID: owner.ID, AmountCents: 2500, Ordinal: 2})
		if err != nil {
			t.Fatalf("UpsertLineItem() error: %v", err)
		}
		if got.ID != "li-1" || got.AmountCents != 2500 || got.Ordinal != 2 || got.Status != core.StatusPaid {
			t.Fatalf("upserted item = %+v", got)
		}
	}

	items, err := s.ListLineItems(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListLineItems() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("line items = %d, want 1", len(items))
	}
}

func TestDeleteCycleCascades(t *testing.T) {
	s := newTestStore(t)
	ws, owner := seedWorkspace(t, s)
	ctx := context.Background()

	c := core.Cycle{ID: "c-1", WorkspaceID: ws.ID, Month: core.NewDate(2025, 3, 1), CreatedAt: time.Now()}
	if err := s.CreateCycle(ctx, c); err != nil {
		t.Fatalf("CreateCycle() error: %v", err)
	}
	if err := s.InsertLineItems(ctx, []core.LineItem{{ID: "li-1", CycleID: c.ID, Kind: core.KindDebt,
		SourceID: "debt-1", GroupID: owner.ID, AmountCents: 1, Ordinal: 1, Status: core.StatusPending}}); err != nil {
		t.Fatalf("InsertLineItems() error: %v", err)
	}
	if err := s.DeleteCycle(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCycle() error: %v", err)
	}
	if _, err := s.GetLineItem(ctx, "li-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("line item should be gone with its cycle, got %v", err)
	}
}

func TestInsertLineItemsIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ws, owner := seedWorkspace(t, s)
	ctx := context.Background()

	c := core.Cycle{ID: "c-1", WorkspaceID: ws.ID, Month: core.NewDate(2025, 3, 1), CreatedAt: time.Now()}
	if err := s.CreateCycle(ctx, c); err != nil {
		t.Fatalf("CreateCycle() error: %v", err)
	}
	items := []core.LineItem{
		{ID: "li-1", CycleID: c.ID, Kind: core.KindDebt, SourceID: "debt-1", GroupID: owner.ID, AmountCents: 1, Ordinal: 1, Status: core.StatusPending},
		{ID: "li-2", CycleID: c.ID, Kind: core.KindDebt, SourceID: "debt-1", GroupID: owner.ID, AmountCents: 1, Ordinal: 1, Status: core.StatusPending},
	}
	if err := s.InsertLineItems(ctx, items); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("InsertLineItems() error = %v, want ErrConflict", err)
	}
	got, err := s.ListLineItems(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListLineItems() error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("partial batch persisted: %d items", len(got))
	}
}

func TestDeleteCounterpartyInUse(t *testing.T) {
	s := newTestStore(t)
	ws, owner := seedWorkspace(t, s)
	ctx := context.Background()

	d := core.Debt{ID: "d-1", WorkspaceID: ws.ID, OwnerID: owner.ID, Name: "Phone",
		Amount: core.Money{Cents: 100, Currency: "BRL"}, FirstPaymentDate: core.NewDate(2025, 1, 1)}
	if err := s.CreateDebt(ctx, d); err != nil {
		t.Fatalf("CreateDebt() error: %v", err)
	}
	if err := s.DeleteCounterparty(ctx, ws.ID, owner.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("DeleteCounterparty() error = %v, want ErrConflict", err)
	}
}
