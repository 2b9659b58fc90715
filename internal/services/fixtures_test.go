package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"fincycle/internal/core"
	"fincycle/internal/storage/memory"
)

const testWorkspace = "ws-1"

// stubRates returns a fixed rate for every pair or a configured error.
type stubRates struct {
	rate  decimal.Decimal
	err   error
	calls atomic.Int32
}

func (s *stubRates) Rate(context.Context, string, string) (decimal.Decimal, error) {
	s.calls.Add(1)
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

func newRates(rate string) *stubRates {
	return &stubRates{rate: decimal.RequireFromString(rate)}
}

type fixture struct {
	store *memory.Store
	rates *stubRates
	owner core.Counterparty
	payer core.Counterparty
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateWorkspace(ctx,
		core.Workspace{ID: testWorkspace, DefaultCurrency: "BRL", CreatedAt: time.Now()},
		core.Member{ID: "m-1", Email: "owner@example.com"}, HashToken("secret")))

	f := &fixture{
		store: store,
		rates: newRates("5.25"),
		owner: core.Counterparty{ID: "owner-1", WorkspaceID: testWorkspace, Kind: core.KindDebt, Name: "Credit card"},
		payer: core.Counterparty{ID: "payer-1", WorkspaceID: testWorkspace, Kind: core.KindIncome, Name: "Employer"},
	}
	require.NoError(t, store.CreateCounterparty(ctx, f.owner))
	require.NoError(t, store.CreateCounterparty(ctx, f.payer))
	return f
}

func (f *fixture) addDebt(t *testing.T, d core.Debt) core.Debt {
	t.Helper()
	d.WorkspaceID = testWorkspace
	if d.OwnerID == "" {
		d.OwnerID = f.owner.ID
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	d = d.WithDerivedEnd()
	require.NoError(t, d.Validate())
	require.NoError(t, f.store.CreateDebt(context.Background(), d))
	return d
}

func (f *fixture) addIncome(t *testing.T, i core.Income) core.Income {
	t.Helper()
	i.WorkspaceID = testWorkspace
	if i.PayerID == "" {
		i.PayerID = f.payer.ID
	}
	if i.Name == "" {
		i.Name = i.ID
	}
	i = i.WithDerivedEnd()
	require.NoError(t, i.Validate())
	require.NoError(t, f.store.CreateIncome(context.Background(), i))
	return i
}

func (f *fixture) materializer(policy KickstartPolicy) *Materializer {
	return NewMaterializer(f.store, f.rates, policy)
}

func (f *fixture) synchronizer(policy DeletionPolicy, now time.Time) *Synchronizer {
	s := NewSynchronizer(f.store, f.rates, policy, 4)
	s.now = func() time.Time { return now }
	return s
}

func brl(cents int64) core.Money { return core.Money{Cents: cents, Currency: "BRL"} }
func usd(cents int64) core.Money { return core.Money{Cents: cents, Currency: "USD"} }

func itemBySource(t *testing.T, items []core.LineItem, sourceID string) core.LineItem {
	t.Helper()
	for _, it := range items {
		if it.SourceID == sourceID {
			return it
		}
	}
	t.Fatalf("no line item for source %s in %+v", sourceID, items)
	return core.LineItem{}
}

// failingStore lets a test break selected store calls.
type failingStore struct {
	*memory.Store
	insertLineItems error
	findCycle       func(month core.Date) error
}

func (s *failingStore) InsertLineItems(ctx context.Context, items []core.LineItem) error {
	if s.insertLineItems != nil {
		return s.insertLineItems
	}
	return s.Store.InsertLineItems(ctx, items)
}

func (s *failingStore) FindCycle(ctx context.Context, workspaceID string, month core.Date) (core.Cycle, error) {
	if s.findCycle != nil {
		if err := s.findCycle(month); err != nil {
			return core.Cycle{}, err
		}
	}
	return s.Store.FindCycle(ctx, workspaceID, month)
}

var errStoreDown = errors.New("store unavailable")
