package memory

import (
	"context"
	"sort"

	"fincycle/internal/core"
)

func (s *Store) CreateCycle(_ context.Context, c core.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Month = core.MonthStart(c.Month.Time)
	for _, existing := range s.cycles {
		if existing.WorkspaceID == c.WorkspaceID && existing.Month.Equal(c.Month.Time) {
			return core.Conflict("cycle for %s already exists", c.Month)
		}
	}
	if _, ok := s.cycles[c.ID]; ok {
		return core.Conflict("cycle %s already exists", c.ID)
	}
	s.cycles[c.ID] = c
	return nil
}

func (s *Store) DeleteCycle(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cycles[id]; !ok {
		return core.NotFound("cycle", id)
	}
	delete(s.cycles, id)
	for k, it := range s.lineItems {
		if it.CycleID == id {
			delete(s.lineItems, k)
		}
	}
	for k, e := range s.expenses {
		if e.CycleID == id {
			delete(s.expenses, k)
		}
	}
	return nil
}

func (s *Store) GetCycle(_ context.Context, id string) (core.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cycles[id]
	if !ok {
		return core.Cycle{}, core.NotFound("cycle", id)
	}
	return c, nil
}

func (s *Store) FindCycle(_ context.Context, workspaceID string, month core.Date) (core.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms := core.MonthStart(month.Time)
	for _, c := range s.cycles {
		if c.WorkspaceID == workspaceID && c.Month.Equal(ms.Time) {
			return c, nil
		}
	}
	return core.Cycle{}, core.NotFound("cycle", ms.String())
}

func (s *Store) InsertLineItems(_ context.Context, items []core.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[[2]string]bool{}
	for _, it := range items {
		if _, ok := s.cycles[it.CycleID]; !ok {
			return core.NotFound("cycle", it.CycleID)
		}
		key := [2]string{it.CycleID, it.SourceID}
		if seen[key] || s.findBySource(it.CycleID, it.SourceID) != "" {
			return core.Conflict("line item for source %s already exists", it.SourceID)
		}
		if _, ok := s.lineItems[it.ID]; ok {
			return core.Conflict("line item %s already exists", it.ID)
		}
		seen[key] = true
	}
	for _, it := range items {
		s.lineItems[it.ID] = it
	}
	return nil
}

func (s *Store) findBySource(cycleID, sourceID string) string {
	for id, it := range s.lineItems {
		if it.CycleID == cycleID && it.SourceID == sourceID {
			return id
		}
	}
	return ""
}

func (s *Store) UpsertLineItem(_ context.Context, it core.LineItem) (core.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cycles[it.CycleID]; !ok {
		return core.LineItem{}, core.NotFound("cycle", it.CycleID)
	}
	if id := s.findBySource(it.CycleID, it.SourceID); id != "" {
		existing := s.lineItems[id]
		existing.AmountCents = it.AmountCents
		existing.Ordinal = it.Ordinal
		existing.GroupID = it.GroupID
		s.lineItems[id] = existing
		return existing, nil
	}
	it.Status = core.StatusPending
	s.lineItems[it.ID] = it
	return it, nil
}

func (s *Store) DeleteLineItemsBySource(_ context.Context, cycleID, sourceID string, status core.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, it := range s.lineItems {
		if it.CycleID == cycleID && it.SourceID == sourceID && it.Status == status {
			delete(s.lineItems, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) GetLineItem(_ context.Context, id string) (core.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.lineItems[id]
	if !ok {
		return core.LineItem{}, core.NotFound("line item", id)
	}
	return it, nil
}

func (s *Store) ListLineItems(_ context.Context, cycleID string) ([]core.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.LineItem
	for _, it := range s.lineItems {
		if it.CycleID == cycleID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) SetLineItemStatus(_ context.Context, id string, status core.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lineItems[id]
	if !ok {
		return core.NotFound("line item", id)
	}
	it.Status = status
	s.lineItems[id] = it
	return nil
}

func (s *Store) SetLineItemAmount(_ context.Context, id string, amountCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lineItems[id]
	if !ok {
		return core.NotFound("line item", id)
	}
	it.AmountCents = amountCents
	s.lineItems[id] = it
	return nil
}

func (s *Store) SetGroupStatus(_ context.Context, cycleID string, kind core.Kind, groupID string, status core.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, it := range s.lineItems {
		if it.CycleID == cycleID && it.Kind == kind && it.GroupID == groupID {
			it.Status = status
			s.lineItems[id] = it
			n++
		}
	}
	return n, nil
}

func (s *Store) AddExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cycles[e.CycleID]; !ok {
		return core.NotFound("cycle", e.CycleID)
	}
	if _, ok := s.expenses[e.ID]; ok {
		return core.Conflict("expense %s already exists", e.ID)
	}
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.NotFound("expense", id)
	}
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.NotFound("expense", id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, cycleID string) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.CycleID == cycleID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
