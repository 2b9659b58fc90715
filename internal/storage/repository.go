// Package storage persists workspaces, ledger definitions and materialized
// cycles. SQLStore serves both SQLite and Postgres; package memory provides an
// in-process implementation of the same interfaces.
package storage

import (
	"context"

	"fincycle/internal/core"
)

// WorkspaceStore holds tenants and the members that authenticate against them.
type WorkspaceStore interface {
	// CreateWorkspace stores the workspace and its first member atomically.
	CreateWorkspace(ctx context.Context, ws core.Workspace, m core.Member, tokenHash string) error
	GetWorkspace(ctx context.Context, id string) (core.Workspace, error)
	MemberByTokenHash(ctx context.Context, tokenHash string) (core.Member, error)
}

// LedgerStore holds the recurring definitions a cycle is materialized from.
type LedgerStore interface {
	CreateCounterparty(ctx context.Context, c core.Counterparty) error
	GetCounterparty(ctx context.Context, workspaceID, id string) (core.Counterparty, error)
	ListCounterparties(ctx context.Context, workspaceID string, kind core.Kind) ([]core.Counterparty, error)
	DeleteCounterparty(ctx context.Context, workspaceID, id string) error

	CreateDebt(ctx context.Context, d core.Debt) error
	UpdateDebt(ctx context.Context, d core.Debt) error
	DeleteDebt(ctx context.Context, workspaceID, id string) error
	GetDebt(ctx context.Context, workspaceID, id string) (core.Debt, error)
	ListDebts(ctx context.Context, workspaceID string) ([]core.Debt, error)
	// ListActiveDebts returns the debts whose schedule resolves active in month.
	ListActiveDebts(ctx context.Context, workspaceID string, month core.Date) ([]core.Debt, error)

	CreateIncome(ctx context.Context, i core.Income) error
	UpdateIncome(ctx context.Context, i core.Income) error
	DeleteIncome(ctx context.Context, workspaceID, id string) error
	GetIncome(ctx context.Context, workspaceID, id string) (core.Income, error)
	ListIncomes(ctx context.Context, workspaceID string) ([]core.Income, error)
	ListActiveIncomes(ctx context.Context, workspaceID string, month core.Date) ([]core.Income, error)
}

// CycleStore holds materialized cycles, their line items and expenses.
type CycleStore interface {
	// CreateCycle fails with core.ErrConflict when the workspace already has a
	// cycle for the month.
	CreateCycle(ctx context.Context, c core.Cycle) error
	DeleteCycle(ctx context.Context, id string) error
	GetCycle(ctx context.Context, id string) (core.Cycle, error)
	FindCycle(ctx context.Context, workspaceID string, month core.Date) (core.Cycle, error)

	// InsertLineItems writes the batch in a single transaction.
	InsertLineItems(ctx context.Context, items []core.LineItem) error
	// UpsertLineItem inserts the item or updates amount, ordinal and group of
	// the existing (cycle, source) row. Status is never overwritten.
	UpsertLineItem(ctx context.Context, item core.LineItem) (core.LineItem, error)
	// DeleteLineItemsBySource removes the source's items in status within the cycle.
	DeleteLineItemsBySource(ctx context.Context, cycleID, sourceID string, status core.Status) (int, error)
	GetLineItem(ctx context.Context, id string) (core.LineItem, error)
	ListLineItems(ctx context.Context, cycleID string) ([]core.LineItem, error)
	SetLineItemStatus(ctx context.Context, id string, status core.Status) error
	SetLineItemAmount(ctx context.Context, id string, amountCents int64) error
	SetGroupStatus(ctx context.Context, cycleID string, kind core.Kind, groupID string, status core.Status) (int, error)

	AddExpense(ctx context.Context, e core.Expense) error
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context, cycleID string) ([]core.Expense, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	WorkspaceStore
	LedgerStore
	CycleStore
	Ping(ctx context.Context) error
	Close() error
}
