// Package memory is an in-process storage.Store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"fincycle/internal/core"
	"fincycle/internal/storage"
)

type Store struct {
	mu sync.RWMutex

	workspaces     map[string]core.Workspace
	members        map[string]core.Member // by token hash
	counterparties map[string]core.Counterparty
	debts          map[string]core.Debt
	incomes        map[string]core.Income
	cycles         map[string]core.Cycle
	lineItems      map[string]core.LineItem
	expenses       map[string]core.Expense
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		workspaces:     map[string]core.Workspace{},
		members:        map[string]core.Member{},
		counterparties: map[string]core.Counterparty{},
		debts:          map[string]core.Debt{},
		incomes:        map[string]core.Income{},
		cycles:         map[string]core.Cycle{},
		lineItems:      map[string]core.LineItem{},
		expenses:       map[string]core.Expense{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateWorkspace(_ context.Context, ws core.Workspace, m core.Member, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[ws.ID]; ok {
		return core.Conflict("workspace %s already exists", ws.ID)
	}
	if _, ok := s.members[tokenHash]; ok {
		return core.Conflict("token already issued")
	}
	m.WorkspaceID = ws.ID
	s.workspaces[ws.ID] = ws
	s.members[tokenHash] = m
	return nil
}

func (s *Store) GetWorkspace(_ context.Context, id string) (core.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return core.Workspace{}, core.NotFound("workspace", id)
	}
	return ws, nil
}

func (s *Store) MemberByTokenHash(_ context.Context, tokenHash string) (core.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[tokenHash]
	if !ok {
		return core.Member{}, core.ErrUnauthorized
	}
	return m, nil
}

func (s *Store) CreateCounterparty(_ context.Context, c core.Counterparty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counterparties[c.ID]; ok {
		return core.Conflict("counterparty %s already exists", c.ID)
	}
	s.counterparties[c.ID] = c
	return nil
}

func (s *Store) GetCounterparty(_ context.Context, workspaceID, id string) (core.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counterparties[id]
	if !ok || c.WorkspaceID != workspaceID {
		return core.Counterparty{}, core.NotFound("counterparty", id)
	}
	return c, nil
}

func (s *Store) ListCounterparties(_ context.Context, workspaceID string, kind core.Kind) ([]core.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Counterparty
	for _, c := range s.counterparties {
		if c.WorkspaceID == workspaceID && c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteCounterparty(_ context.Context, workspaceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counterparties[id]
	if !ok || c.WorkspaceID != workspaceID {
		return core.NotFound("counterparty", id)
	}
	for _, d := range s.debts {
		if d.OwnerID == id {
			return core.Conflict("counterparty %s is referenced by debt %s", id, d.ID)
		}
	}
	for _, i := range s.incomes {
		if i.PayerID == id {
			return core.Conflict("counterparty %s is referenced by income %s", id, i.ID)
		}
	}
	delete(s.counterparties, id)
	return nil
}

func (s *Store) CreateDebt(_ context.Context, d core.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debts[d.ID]; ok {
		return core.Conflict("debt %s already exists", d.ID)
	}
	if !s.hasCounterparty(d.WorkspaceID, d.OwnerID) {
		return core.Conflict("owner %s does not exist", d.OwnerID)
	}
	s.debts[d.ID] = d
	return nil
}

func (s *Store) UpdateDebt(_ context.Context, d core.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.debts[d.ID]
	if !ok || old.WorkspaceID != d.WorkspaceID {
		return core.NotFound("debt", d.ID)
	}
	if !s.hasCounterparty(d.WorkspaceID, d.OwnerID) {
		return core.Conflict("owner %s does not exist", d.OwnerID)
	}
	s.debts[d.ID] = d
	return nil
}

func (s *Store) DeleteDebt(_ context.Context, workspaceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.debts[id]
	if !ok || d.WorkspaceID != workspaceID {
		return core.NotFound("debt", id)
	}
	delete(s.debts, id)
	return nil
}

func (s *Store) GetDebt(_ context.Context, workspaceID, id string) (core.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.debts[id]
	if !ok || d.WorkspaceID != workspaceID {
		return core.Debt{}, core.NotFound("debt", id)
	}
	return d, nil
}

func (s *Store) ListDebts(_ context.Context, workspaceID string) ([]core.Debt, error) {
	return s.filterDebts(workspaceID, func(core.Debt) bool { return true }), nil
}

func (s *Store) ListActiveDebts(_ context.Context, workspaceID string, month core.Date) ([]core.Debt, error) {
	return s.filterDebts(workspaceID, func(d core.Debt) bool {
		return d.Schedule().Resolve(month.Time).Active
	}), nil
}

func (s *Store) filterDebts(workspaceID string, keep func(core.Debt) bool) []core.Debt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Debt
	for _, d := range s.debts {
		if d.WorkspaceID == workspaceID && keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstPaymentDate.Equal(out[j].FirstPaymentDate.Time) {
			return out[i].FirstPaymentDate.Before(out[j].FirstPaymentDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) CreateIncome(_ context.Context, i core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incomes[i.ID]; ok {
		return core.Conflict("income %s already exists", i.ID)
	}
	if !s.hasCounterparty(i.WorkspaceID, i.PayerID) {
		return core.Conflict("payer %s does not exist", i.PayerID)
	}
	s.incomes[i.ID] = i
	return nil
}

func (s *Store) UpdateIncome(_ context.Context, i core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.incomes[i.ID]
	if !ok || old.WorkspaceID != i.WorkspaceID {
		return core.NotFound("income", i.ID)
	}
	if !s.hasCounterparty(i.WorkspaceID, i.PayerID) {
		return core.Conflict("payer %s does not exist", i.PayerID)
	}
	s.incomes[i.ID] = i
	return nil
}

func (s *Store) DeleteIncome(_ context.Context, workspaceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.incomes[id]
	if !ok || i.WorkspaceID != workspaceID {
		return core.NotFound("income", id)
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) GetIncome(_ context.Context, workspaceID, id string) (core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.incomes[id]
	if !ok || i.WorkspaceID != workspaceID {
		return core.Income{}, core.NotFound("income", id)
	}
	return i, nil
}

func (s *Store) ListIncomes(_ context.Context, workspaceID string) ([]core.Income, error) {
	return s.filterIncomes(workspaceID, func(core.Income) bool { return true }), nil
}

func (s *Store) ListActiveIncomes(_ context.Context, workspaceID string, month core.Date) ([]core.Income, error) {
	return s.filterIncomes(workspaceID, func(i core.Income) bool {
		return i.Schedule().Resolve(month.Time).Active
	}), nil
}

func (s *Store) filterIncomes(workspaceID string, keep func(core.Income) bool) []core.Income {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Income
	for _, i := range s.incomes {
		if i.WorkspaceID == workspaceID && keep(i) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].FirstIncomeDate.Equal(out[b].FirstIncomeDate.Time) {
			return out[a].FirstIncomeDate.Before(out[b].FirstIncomeDate.Time)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func (s *Store) hasCounterparty(workspaceID, id string) bool {
	c, ok := s.counterparties[id]
	return ok && c.WorkspaceID == workspaceID
}
