package services

import (
	"context"
	"fmt"
	"log/slog"

	"fincycle/internal/core"
	"fincycle/internal/storage"
)

// StatusService mutates payment status and amounts of materialized line items.
type StatusService struct {
	cycles storage.CycleStore
}

func NewStatusService(cycles storage.CycleStore) *StatusService {
	return &StatusService{cycles: cycles}
}

// lineItem loads the item and checks it belongs to the workspace. Items of
// other workspaces are reported as missing.
func (s *StatusService) lineItem(ctx context.Context, workspaceID, id string) (core.LineItem, error) {
	it, err := s.cycles.GetLineItem(ctx, id)
	if err != nil {
		return core.LineItem{}, err
	}
	if _, err := ownedCycle(ctx, s.cycles, workspaceID, it.CycleID); err != nil {
		return core.LineItem{}, core.NotFound("line item", id)
	}
	return it, nil
}

func ownedCycle(ctx context.Context, cycles storage.CycleStore, workspaceID, cycleID string) (core.Cycle, error) {
	c, err := cycles.GetCycle(ctx, cycleID)
	if err != nil {
		return core.Cycle{}, err
	}
	if c.WorkspaceID != workspaceID {
		return core.Cycle{}, core.NotFound("cycle", cycleID)
	}
	return c, nil
}

func (s *StatusService) SetLineItemStatus(ctx context.Context, workspaceID, id string, status core.Status) (core.LineItem, error) {
	if err := status.Validate(); err != nil {
		return core.LineItem{}, err
	}
	it, err := s.lineItem(ctx, workspaceID, id)
	if err != nil {
		return core.LineItem{}, err
	}
	if err := s.cycles.SetLineItemStatus(ctx, id, status); err != nil {
		return core.LineItem{}, fmt.Errorf("set line item status: %w", err)
	}
	it.Status = status
	slog.InfoContext(ctx, "Line item status updated", "line_item_id", id, "status", status)
	return it, nil
}

// SetLineItemAmount overrides the stored amount of one line item. A later sync
// of its source replaces it again.
func (s *StatusService) SetLineItemAmount(ctx context.Context, workspaceID, id string, amountCents int64) (core.LineItem, error) {
	if amountCents < 0 {
		return core.LineItem{}, core.Invalid("amountMinor", "must not be negative")
	}
	it, err := s.lineItem(ctx, workspaceID, id)
	if err != nil {
		return core.LineItem{}, err
	}
	if err := s.cycles.SetLineItemAmount(ctx, id, amountCents); err != nil {
		return core.LineItem{}, fmt.Errorf("set line item amount: %w", err)
	}
	it.AmountCents = amountCents
	slog.InfoContext(ctx, "Line item amount updated", "line_item_id", id, "amount_cents", amountCents)
	return it, nil
}

// SetGroupStatus sets status on every line item of one owner or payer in the
// cycle and returns the resulting group.
func (s *StatusService) SetGroupStatus(ctx context.Context, workspaceID, cycleID string, kind core.Kind, groupID string, status core.Status) (core.Group, error) {
	if err := kind.Validate(); err != nil {
		return core.Group{}, err
	}
	if err := status.Validate(); err != nil {
		return core.Group{}, err
	}
	if groupID == "" {
		return core.Group{}, core.Invalid("groupId", "group id is required")
	}
	if _, err := ownedCycle(ctx, s.cycles, workspaceID, cycleID); err != nil {
		return core.Group{}, err
	}

	n, err := s.cycles.SetGroupStatus(ctx, cycleID, kind, groupID, status)
	if err != nil {
		return core.Group{}, fmt.Errorf("set group status: %w", err)
	}
	if n == 0 {
		return core.Group{}, core.NotFound("group", groupID)
	}

	items, err := s.cycles.ListLineItems(ctx, cycleID)
	if err != nil {
		return core.Group{}, fmt.Errorf("list line items: %w", err)
	}
	for _, g := range core.GroupLineItems(items) {
		if g.Kind == kind && g.GroupID == groupID {
			return g, nil
		}
	}
	return core.Group{}, core.NotFound("group", groupID)
}
