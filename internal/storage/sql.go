package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fincycle/internal/core"
	applog "fincycle/internal/log"
)

// SQLStore implements Store on database/sql. Queries are written with ?
// placeholders and rebound for the dialect.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	closeFn func()
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d}
}

func (s *SQLStore) q(query string) string { return s.dialect.rebind(query) }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.closeFn != nil {
		s.closeFn()
	}
	return err
}

func dateText(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDateText(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func timeText(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTimeText(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// mapWriteErr turns constraint violations into domain errors.
func mapWriteErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, core.ErrConflict)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: referenced by other records: %w", op, core.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func mapReadErr(entity, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound(entity, id)
	}
	return fmt.Errorf("get %s: %w", entity, err)
}

func expectAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

// Workspaces

func (s *SQLStore) CreateWorkspace(ctx context.Context, ws core.Workspace, m core.Member, tokenHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO workspaces (id, default_currency, created_at) VALUES (?, ?, ?)`),
		ws.ID, ws.DefaultCurrency, timeText(ws.CreatedAt)); err != nil {
		return mapWriteErr("insert workspace", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO members (id, workspace_id, email, name, token_hash) VALUES (?, ?, ?, ?, ?)`),
		m.ID, ws.ID, m.Email, m.Name, tokenHash); err != nil {
		return mapWriteErr("insert member", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit workspace: %w", err)
	}
	return nil
}

func (s *SQLStore) GetWorkspace(ctx context.Context, id string) (core.Workspace, error) {
	var (
		ws      core.Workspace
		created string
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, default_currency, created_at FROM workspaces WHERE id = ?`), id).
		Scan(&ws.ID, &ws.DefaultCurrency, &created)
	if err != nil {
		return core.Workspace{}, mapReadErr("workspace", id, err)
	}
	ws.CreatedAt = parseTimeText(created)
	return ws, nil
}

func (s *SQLStore) MemberByTokenHash(ctx context.Context, tokenHash string) (core.Member, error) {
	var m core.Member
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, workspace_id, email, name FROM members WHERE token_hash = ?`), tokenHash).
		Scan(&m.ID, &m.WorkspaceID, &m.Email, &m.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get member by token: %w", err)
	}
	return m, nil
}

// Counterparties

func (s *SQLStore) CreateCounterparty(ctx context.Context, c core.Counterparty) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO counterparties (id, workspace_id, kind, name) VALUES (?, ?, ?, ?)`),
		c.ID, c.WorkspaceID, string(c.Kind), c.Name)
	return mapWriteErr("insert counterparty", err)
}

func (s *SQLStore) GetCounterparty(ctx context.Context, workspaceID, id string) (core.Counterparty, error) {
	var (
		c    core.Counterparty
		kind string
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, workspace_id, kind, name FROM counterparties WHERE workspace_id = ? AND id = ?`),
		workspaceID, id).Scan(&c.ID, &c.WorkspaceID, &kind, &c.Name)
	if err != nil {
		return core.Counterparty{}, mapReadErr("counterparty", id, err)
	}
	c.Kind = core.Kind(kind)
	return c, nil
}

func (s *SQLStore) ListCounterparties(ctx context.Context, workspaceID string, kind core.Kind) ([]core.Counterparty, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, workspace_id, kind, name FROM counterparties
		WHERE workspace_id = ? AND kind = ? ORDER BY name, id`), workspaceID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list counterparties: %w", err)
	}
	defer rows.Close()

	var out []core.Counterparty
	for rows.Next() {
		var (
			c core.Counterparty
			k string
		)
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &k, &c.Name); err != nil {
			return nil, fmt.Errorf("scan counterparty: %w", err)
		}
		c.Kind = core.Kind(k)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteCounterparty(ctx context.Context, workspaceID, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM counterparties WHERE workspace_id = ? AND id = ?`), workspaceID, id)
	if err != nil {
		return mapWriteErr("delete counterparty", err)
	}
	return expectAffected(res, "counterparty", id)
}

// Debts

const debtColumns = `id, workspace_id, owner_id, name, amount_cents, currency, purchased_at,
	first_payment_date, has_end, installments, end_date, reimbursement_income_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanDebt(sc scanner) (core.Debt, error) {
	var (
		d                      core.Debt
		purchased, first, end string
	)
	err := sc.Scan(&d.ID, &d.WorkspaceID, &d.OwnerID, &d.Name, &d.Amount.Cents, &d.Amount.Currency,
		&purchased, &first, &d.HasEnd, &d.Installments, &end, &d.ReimbursementIncomeID)
	if err != nil {
		return core.Debt{}, err
	}
	if d.PurchasedAt, err = parseDateText(purchased); err != nil {
		return core.Debt{}, fmt.Errorf("purchased_at: %w", err)
	}
	if d.FirstPaymentDate, err = parseDateText(first); err != nil {
		return core.Debt{}, fmt.Errorf("first_payment_date: %w", err)
	}
	if d.EndDate, err = parseDateText(end); err != nil {
		return core.Debt{}, fmt.Errorf("end_date: %w", err)
	}
	return d, nil
}

func (s *SQLStore) CreateDebt(ctx context.Context, d core.Debt) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO debts (`+debtColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		d.ID, d.WorkspaceID, d.OwnerID, d.Name, d.Amount.Cents, d.Amount.Currency, dateText(d.PurchasedAt),
		dateText(d.FirstPaymentDate), d.HasEnd, d.Installments, dateText(d.EndDate), d.ReimbursementIncomeID)
	return mapWriteErr("insert debt", err)
}

func (s *SQLStore) UpdateDebt(ctx context.Context, d core.Debt) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE debts SET owner_id = ?, name = ?, amount_cents = ?, currency = ?,
		purchased_at = ?, first_payment_date = ?, has_end = ?, installments = ?, end_date = ?, reimbursement_income_id = ?
		WHERE workspace_id = ? AND id = ?`),
		d.OwnerID, d.Name, d.Amount.Cents, d.Amount.Currency, dateText(d.PurchasedAt), dateText(d.FirstPaymentDate),
		d.HasEnd, d.Installments, dateText(d.EndDate), d.ReimbursementIncomeID, d.WorkspaceID, d.ID)
	if err != nil {
		return mapWriteErr("update debt", err)
	}
	return expectAffected(res, "debt", d.ID)
}

func (s *SQLStore) DeleteDebt(ctx context.Context, workspaceID, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM debts WHERE workspace_id = ? AND id = ?`), workspaceID, id)
	if err != nil {
		return mapWriteErr("delete debt", err)
	}
	return expectAffected(res, "debt", id)
}

func (s *SQLStore) GetDebt(ctx context.Context, workspaceID, id string) (core.Debt, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+debtColumns+` FROM debts WHERE workspace_id = ? AND id = ?`), workspaceID, id)
	d, err := scanDebt(row)
	if err != nil {
		return core.Debt{}, mapReadErr("debt", id, err)
	}
	return d, nil
}

func (s *SQLStore) ListDebts(ctx context.Context, workspaceID string) ([]core.Debt, error) {
	return s.queryDebts(ctx, `SELECT `+debtColumns+` FROM debts WHERE workspace_id = ?
		ORDER BY first_payment_date, name, id`, workspaceID)
}

// ListActiveDebts mirrors core.Schedule.Resolve: the first payment falls in the
// month, or it started on or before the month start and has no end or ends on
// or after the month start.
func (s *SQLStore) ListActiveDebts(ctx context.Context, workspaceID string, month core.Date) ([]core.Debt, error) {
	ms, me := core.MonthStart(month.Time).String(), core.MonthEnd(month.Time).String()
	return s.queryDebts(ctx, `SELECT `+debtColumns+` FROM debts
		WHERE workspace_id = ?
		  AND ((first_payment_date >= ? AND first_payment_date <= ?)
		    OR (first_payment_date <= ? AND (has_end = ? OR end_date >= ?)))
		ORDER BY owner_id, first_payment_date, id`,
		workspaceID, ms, me, ms, false, ms)
}

func (s *SQLStore) queryDebts(ctx context.Context, query string, args ...any) ([]core.Debt, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Incomes

const incomeColumns = `id, workspace_id, payer_id, name, amount_cents, currency,
	first_income_date, is_recurrent, number_of_payments, end_date`

func scanIncome(sc scanner) (core.Income, error) {
	var (
		i          core.Income
		first, end string
	)
	err := sc.Scan(&i.ID, &i.WorkspaceID, &i.PayerID, &i.Name, &i.Amount.Cents, &i.Amount.Currency,
		&first, &i.IsRecurrent, &i.NumberOfPayments, &end)
	if err != nil {
		return core.Income{}, err
	}
	if i.FirstIncomeDate, err = parseDateText(first); err != nil {
		return core.Income{}, fmt.Errorf("first_income_date: %w", err)
	}
	if i.EndDate, err = parseDateText(end); err != nil {
		return core.Income{}, fmt.Errorf("end_date: %w", err)
	}
	return i, nil
}

func (s *SQLStore) CreateIncome(ctx context.Context, i core.Income) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO incomes (`+incomeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		i.ID, i.WorkspaceID, i.PayerID, i.Name, i.Amount.Cents, i.Amount.Currency,
		dateText(i.FirstIncomeDate), i.IsRecurrent, i.NumberOfPayments, dateText(i.EndDate))
	return mapWriteErr("insert income", err)
}

func (s *SQLStore) UpdateIncome(ctx context.Context, i core.Income) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE incomes SET payer_id = ?, name = ?, amount_cents = ?, currency = ?,
		first_income_date = ?, is_recurrent = ?, number_of_payments = ?, end_date = ?
		WHERE workspace_id = ? AND id = ?`),
		i.PayerID, i.Name, i.Amount.Cents, i.Amount.Currency, dateText(i.FirstIncomeDate),
		i.IsRecurrent, i.NumberOfPayments, dateText(i.EndDate), i.WorkspaceID, i.ID)
	if err != nil {
		return mapWriteErr("update income", err)
	}
	return expectAffected(res, "income", i.ID)
}

func (s *SQLStore) DeleteIncome(ctx context.Context, workspaceID, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM incomes WHERE workspace_id = ? AND id = ?`), workspaceID, id)
	if err != nil {
		return mapWriteErr("delete income", err)
	}
	return expectAffected(res, "income", id)
}

func (s *SQLStore) GetIncome(ctx context.Context, workspaceID, id string) (core.Income, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+incomeColumns+` FROM incomes WHERE workspace_id = ? AND id = ?`), workspaceID, id)
	i, err := scanIncome(row)
	if err != nil {
		return core.Income{}, mapReadErr("income", id, err)
	}
	return i, nil
}

func (s *SQLStore) ListIncomes(ctx context.Context, workspaceID string) ([]core.Income, error) {
	return s.queryIncomes(ctx, `SELECT `+incomeColumns+` FROM incomes WHERE workspace_id = ?
		ORDER BY first_income_date, name, id`, workspaceID)
}

func (s *SQLStore) ListActiveIncomes(ctx context.Context, workspaceID string, month core.Date) ([]core.Income, error) {
	ms, me := core.MonthStart(month.Time).String(), core.MonthEnd(month.Time).String()
	return s.queryIncomes(ctx, `SELECT `+incomeColumns+` FROM incomes
		WHERE workspace_id = ?
		  AND ((first_income_date >= ? AND first_income_date <= ?)
		    OR (first_income_date <= ? AND (is_recurrent = ? OR end_date >= ?)))
		ORDER BY payer_id, first_income_date, id`,
		workspaceID, ms, me, ms, true, ms)
}

func (s *SQLStore) queryIncomes(ctx context.Context, query string, args ...any) ([]core.Income, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// Cycles

func (s *SQLStore) CreateCycle(ctx context.Context, c core.Cycle) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO cycles (id, workspace_id, month_start, created_at) VALUES (?, ?, ?, ?)`),
		c.ID, c.WorkspaceID, core.MonthStart(c.Month.Time).String(), timeText(c.CreatedAt))
	if isUniqueViolation(err) {
		return core.Conflict("cycle for %s already exists", core.MonthStart(c.Month.Time))
	}
	return mapWriteErr("insert cycle", err)
}

func (s *SQLStore) DeleteCycle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cycles WHERE id = ?`), id)
	if err != nil {
		return mapWriteErr("delete cycle", err)
	}
	return expectAffected(res, "cycle", id)
}

func scanCycle(sc scanner) (core.Cycle, error) {
	var (
		c              core.Cycle
		month, created string
	)
	if err := sc.Scan(&c.ID, &c.WorkspaceID, &month, &created); err != nil {
		return core.Cycle{}, err
	}
	m, err := core.ParseDate(month)
	if err != nil {
		return core.Cycle{}, fmt.Errorf("month_start: %w", err)
	}
	c.Month = m
	c.CreatedAt = parseTimeText(created)
	return c, nil
}

func (s *SQLStore) GetCycle(ctx context.Context, id string) (core.Cycle, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, workspace_id, month_start, created_at FROM cycles WHERE id = ?`), id)
	c, err := scanCycle(row)
	if err != nil {
		return core.Cycle{}, mapReadErr("cycle", id, err)
	}
	return c, nil
}

func (s *SQLStore) FindCycle(ctx context.Context, workspaceID string, month core.Date) (core.Cycle, error) {
	ms := core.MonthStart(month.Time).String()
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, workspace_id, month_start, created_at FROM cycles
		WHERE workspace_id = ? AND month_start = ?`), workspaceID, ms)
	c, err := scanCycle(row)
	if err != nil {
		return core.Cycle{}, mapReadErr("cycle", ms, err)
	}
	return c, nil
}

// Line items

const lineItemColumns = `id, cycle_id, kind, source_id, group_id, amount_cents, ordinal, status`

func scanLineItem(sc scanner) (core.LineItem, error) {
	var (
		it           core.LineItem
		kind, status string
	)
	if err := sc.Scan(&it.ID, &it.CycleID, &kind, &it.SourceID, &it.GroupID, &it.AmountCents, &it.Ordinal, &status); err != nil {
		return core.LineItem{}, err
	}
	it.Kind, it.Status = core.Kind(kind), core.Status(status)
	return it, nil
}

func (s *SQLStore) InsertLineItems(ctx context.Context, items []core.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO cycle_line_items (`+lineItemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare line item insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.ID, it.CycleID, string(it.Kind), it.SourceID, it.GroupID,
			it.AmountCents, it.Ordinal, string(it.Status)); err != nil {
			return mapWriteErr("insert line item "+it.SourceID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit line items: %w", err)
	}
	return nil
}

func (s *SQLStore) UpsertLineItem(ctx context.Context, it core.LineItem) (core.LineItem, error) {
	row := s.db.QueryRowContext(ctx, s.q(`INSERT INTO cycle_line_items (`+lineItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cycle_id, source_id) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			ordinal = excluded.ordinal,
			group_id = excluded.group_id
		RETURNING `+lineItemColumns),
		it.ID, it.CycleID, string(it.Kind), it.SourceID, it.GroupID, it.AmountCents, it.Ordinal, string(core.StatusPending))
	out, err := scanLineItem(row)
	if err != nil {
		return core.LineItem{}, mapWriteErr("upsert line item", err)
	}
	return out, nil
}

func (s *SQLStore) DeleteLineItemsBySource(ctx context.Context, cycleID, sourceID string, status core.Status) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cycle_line_items WHERE cycle_id = ? AND source_id = ? AND status = ?`),
		cycleID, sourceID, string(status))
	if err != nil {
		return 0, mapWriteErr("delete line items", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (s *SQLStore) GetLineItem(ctx context.Context, id string) (core.LineItem, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+lineItemColumns+` FROM cycle_line_items WHERE id = ?`), id)
	it, err := scanLineItem(row)
	if err != nil {
		return core.LineItem{}, mapReadErr("line item", id, err)
	}
	return it, nil
}

func (s *SQLStore) ListLineItems(ctx context.Context, cycleID string) ([]core.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+lineItemColumns+` FROM cycle_line_items
		WHERE cycle_id = ? ORDER BY kind, group_id, ordinal, id`), cycleID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var out []core.LineItem
	for rows.Next() {
		it, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetLineItemStatus(ctx context.Context, id string, status core.Status) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE cycle_line_items SET status = ? WHERE id = ?`), string(status), id)
	if err != nil {
		return mapWriteErr("update line item status", err)
	}
	return expectAffected(res, "line item", id)
}

func (s *SQLStore) SetLineItemAmount(ctx context.Context, id string, amountCents int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE cycle_line_items SET amount_cents = ? WHERE id = ?`), amountCents, id)
	if err != nil {
		return mapWriteErr("update line item amount", err)
	}
	return expectAffected(res, "line item", id)
}

func (s *SQLStore) SetGroupStatus(ctx context.Context, cycleID string, kind core.Kind, groupID string, status core.Status) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE cycle_line_items SET status = ?
		WHERE cycle_id = ? AND kind = ? AND group_id = ?`), string(status), cycleID, string(kind), groupID)
	if err != nil {
		return 0, mapWriteErr("update group status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	slog.DebugContext(ctx, "Group status updated", applog.FieldComponent, applog.ComponentStorage, applog.FieldCycleID, cycleID, "kind", kind, "group_id", groupID, "rows", n)
	return int(n), nil
}

// Expenses

const expenseColumns = `id, cycle_id, name, amount_cents, date, category, note`

func scanExpense(sc scanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := sc.Scan(&e.ID, &e.CycleID, &e.Name, &e.AmountCents, &date, &e.Category, &e.Note); err != nil {
		return core.Expense{}, err
	}
	d, err := parseDateText(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("date: %w", err)
	}
	e.Date = d
	return e, nil
}

func (s *SQLStore) AddExpense(ctx context.Context, e core.Expense) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO cycle_expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.CycleID, e.Name, e.AmountCents, dateText(e.Date), e.Category, e.Note)
	return mapWriteErr("insert expense", err)
}

func (s *SQLStore) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+expenseColumns+` FROM cycle_expenses WHERE id = ?`), id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, mapReadErr("expense", id, err)
	}
	return e, nil
}

func (s *SQLStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cycle_expenses WHERE id = ?`), id)
	if err != nil {
		return mapWriteErr("delete expense", err)
	}
	return expectAffected(res, "expense", id)
}

func (s *SQLStore) ListExpenses(ctx context.Context, cycleID string) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+expenseColumns+` FROM cycle_expenses
		WHERE cycle_id = ? ORDER BY date, id`), cycleID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
