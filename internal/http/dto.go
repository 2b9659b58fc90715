package http

import (
	"fincycle/internal/core"
	"fincycle/internal/services"
)

// Request bodies.

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type overrideRequest struct {
	DebtID      string `json:"debtId"`
	IncomeID    string `json:"incomeId"`
	AmountMinor *int64 `json:"amountMinor"`
}

type kickstartRequest struct {
	Date            string            `json:"date"`
	DebtsOverride   []overrideRequest `json:"debtsOverride"`
	IncomesOverride []overrideRequest `json:"incomesOverride"`
}

type groupStatusRequest struct {
	Kind    core.Kind   `json:"kind"`
	GroupID string      `json:"groupId"`
	Status  core.Status `json:"status"`
}

type statusRequest struct {
	Status core.Status `json:"status"`
}

type amountRequest struct {
	AmountMinor *int64 `json:"amountMinor"`
}

type expenseRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	AmountCents *int64 `json:"amountCents"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Note        string `json:"note"`
}

type reimbursementRequest struct {
	PayerID     string `json:"payerId"`
	AmountCents int64  `json:"amountCents"`
}

type debtRequest struct {
	OwnerID          string                `json:"ownerId"`
	Name             string                `json:"name"`
	Amount           string                `json:"amount"`
	AmountCents      *int64                `json:"amountCents"`
	Currency         string                `json:"currency"`
	PurchasedAt      string                `json:"purchasedAt"`
	FirstPaymentDate string                `json:"firstPaymentDate"`
	HasEnd           bool                  `json:"hasEnd"`
	Installments     int                   `json:"installments"`
	Reimbursement    *reimbursementRequest `json:"reimbursement"`
}

type incomeRequest struct {
	PayerID          string `json:"payerId"`
	Name             string `json:"name"`
	Amount           string `json:"amount"`
	AmountCents      *int64 `json:"amountCents"`
	Currency         string `json:"currency"`
	FirstIncomeDate  string `json:"firstIncomeDate"`
	IsRecurrent      bool   `json:"isRecurrent"`
	NumberOfPayments int    `json:"numberOfPayments"`
}

type counterpartyRequest struct {
	Name string `json:"name"`
}

type convertRequest struct {
	AmountMinor *int64 `json:"amountMinor"`
	Currency    string `json:"currency"`
}

// Response bodies.

type signupResponse struct {
	WorkspaceID string `json:"workspaceId"`
	MemberID    string `json:"memberId"`
	Currency    string `json:"currency"`
	Token       string `json:"token"`
}

type lineItemResponse struct {
	ID           string      `json:"id"`
	Kind         core.Kind   `json:"kind"`
	SourceID     string      `json:"sourceId"`
	GroupID      string      `json:"groupId"`
	Name         string      `json:"name,omitempty"`
	AmountMinor  int64       `json:"amountMinor"`
	Formatted    string      `json:"formatted"`
	Ordinal      int         `json:"ordinal"`
	Installments int         `json:"installments,omitempty"`
	Open         bool        `json:"open"`
	Status       core.Status `json:"status"`
}

type groupResponse struct {
	Kind       core.Kind          `json:"kind"`
	GroupID    string             `json:"groupId"`
	Status     core.Status        `json:"status"`
	TotalMinor int64              `json:"totalMinor"`
	Items      []lineItemResponse `json:"items"`
}

type expenseResponse struct {
	ID          string `json:"id"`
	CycleID     string `json:"cycleId"`
	Name        string `json:"name"`
	AmountMinor int64  `json:"amountMinor"`
	Date        string `json:"date"`
	Category    string `json:"category,omitempty"`
	Note        string `json:"note,omitempty"`
}

type cycleResponse struct {
	CycleID        string             `json:"cycleId,omitempty"`
	Month          string             `json:"month"`
	Materialized   bool               `json:"materialized"`
	Currency       string             `json:"currency"`
	Debts          []lineItemResponse `json:"debts"`
	Incomes        []lineItemResponse `json:"incomes"`
	Owners         []groupResponse    `json:"owners"`
	Payers         []groupResponse    `json:"payers"`
	Expenses       []expenseResponse  `json:"expenses"`
	TotalDebts     int64              `json:"totalDebts"`
	TotalIncomes   int64              `json:"totalIncomes"`
	TotalExpenses  int64              `json:"totalExpenses"`
	AvailableMoney int64              `json:"availableMoney"`
	Available      string             `json:"available"`
}

type kickstartResponse struct {
	Success bool   `json:"success"`
	Created bool   `json:"created"`
	CycleID string `json:"cycleId"`
	Month   string `json:"month"`
	Items   int    `json:"items"`
}

type debtResponse struct {
	ID                    string `json:"id"`
	OwnerID               string `json:"ownerId"`
	Name                  string `json:"name"`
	AmountCents           int64  `json:"amountCents"`
	Currency              string `json:"currency"`
	PurchasedAt           string `json:"purchasedAt,omitempty"`
	FirstPaymentDate      string `json:"firstPaymentDate"`
	HasEnd                bool   `json:"hasEnd"`
	Installments          int    `json:"installments,omitempty"`
	EndDate               string `json:"endDate,omitempty"`
	ReimbursementIncomeID string `json:"reimbursementIncomeId,omitempty"`
}

type incomeResponse struct {
	ID               string `json:"id"`
	PayerID          string `json:"payerId"`
	Name             string `json:"name"`
	AmountCents      int64  `json:"amountCents"`
	Currency         string `json:"currency"`
	FirstIncomeDate  string `json:"firstIncomeDate"`
	IsRecurrent      bool   `json:"isRecurrent"`
	NumberOfPayments int    `json:"numberOfPayments,omitempty"`
	EndDate          string `json:"endDate,omitempty"`
}

type counterpartyResponse struct {
	ID   string    `json:"id"`
	Kind core.Kind `json:"kind"`
	Name string    `json:"name"`
}

type syncResponse struct {
	Accepted bool   `json:"accepted"`
	Table    string `json:"table"`
	SourceID string `json:"sourceId"`
}

type convertResponse struct {
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	Formatted   string `json:"formatted"`
}

// Mappers.

func dateString(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func toLineItem(it core.LineItem, currency string) lineItemResponse {
	return lineItemResponse{
		ID:          it.ID,
		Kind:        it.Kind,
		SourceID:    it.SourceID,
		GroupID:     it.GroupID,
		AmountMinor: it.AmountCents,
		Formatted:   core.FormatCents(it.AmountCents, currency),
		Ordinal:     it.Ordinal,
		Status:      it.Status,
	}
}

func toViewItems(items []core.ViewItem, currency string) []lineItemResponse {
	out := make([]lineItemResponse, 0, len(items))
	for _, v := range items {
		r := toLineItem(v.LineItem, currency)
		r.Name = v.Name
		r.Installments = v.Installments
		r.Open = v.Open
		out = append(out, r)
	}
	return out
}

func toGroup(g core.Group, currency string) groupResponse {
	items := make([]lineItemResponse, 0, len(g.Items))
	for _, it := range g.Items {
		items = append(items, toLineItem(it, currency))
	}
	return groupResponse{Kind: g.Kind, GroupID: g.GroupID, Status: g.Status, TotalMinor: g.TotalCents, Items: items}
}

func toGroups(groups []core.Group, currency string) []groupResponse {
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroup(g, currency))
	}
	return out
}

func toExpense(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		CycleID:     e.CycleID,
		Name:        e.Name,
		AmountMinor: e.AmountCents,
		Date:        dateString(e.Date),
		Category:    e.Category,
		Note:        e.Note,
	}
}

func toCycle(v core.CycleView) cycleResponse {
	expenses := make([]expenseResponse, 0, len(v.Expenses))
	for _, e := range v.Expenses {
		expenses = append(expenses, toExpense(e))
	}
	return cycleResponse{
		CycleID:        v.CycleID,
		Month:          v.Month.String(),
		Materialized:   v.Materialized,
		Currency:       v.Currency,
		Debts:          toViewItems(v.Debts, v.Currency),
		Incomes:        toViewItems(v.Incomes, v.Currency),
		Owners:         toGroups(v.Groups(core.KindDebt), v.Currency),
		Payers:         toGroups(v.Groups(core.KindIncome), v.Currency),
		Expenses:       expenses,
		TotalDebts:     v.TotalDebts,
		TotalIncomes:   v.TotalIncomes,
		TotalExpenses:  v.TotalExpenses,
		AvailableMoney: v.AvailableMoney,
		Available:      core.FormatCents(v.AvailableMoney, v.Currency),
	}
}

func toDebt(d core.Debt) debtResponse {
	return debtResponse{
		ID:                    d.ID,
		OwnerID:               d.OwnerID,
		Name:                  d.Name,
		AmountCents:           d.Amount.Cents,
		Currency:              d.Amount.Currency,
		PurchasedAt:           dateString(d.PurchasedAt),
		FirstPaymentDate:      dateString(d.FirstPaymentDate),
		HasEnd:                d.HasEnd,
		Installments:          d.Installments,
		EndDate:               dateString(d.EndDate),
		ReimbursementIncomeID: d.ReimbursementIncomeID,
	}
}

func toIncome(i core.Income) incomeResponse {
	return incomeResponse{
		ID:               i.ID,
		PayerID:          i.PayerID,
		Name:             i.Name,
		AmountCents:      i.Amount.Cents,
		Currency:         i.Amount.Currency,
		FirstIncomeDate:  dateString(i.FirstIncomeDate),
		IsRecurrent:      i.IsRecurrent,
		NumberOfPayments: i.NumberOfPayments,
		EndDate:          dateString(i.EndDate),
	}
}

func toCounterparty(c core.Counterparty) counterpartyResponse {
	return counterpartyResponse{ID: c.ID, Kind: c.Kind, Name: c.Name}
}

func (req kickstartRequest) toService(workspaceID string) (services.KickstartRequest, error) {
	date, err := parseRequiredDate("date", req.Date)
	if err != nil {
		return services.KickstartRequest{}, err
	}
	out := services.KickstartRequest{WorkspaceID: workspaceID, Date: date}
	for _, o := range req.DebtsOverride {
		if o.AmountMinor == nil {
			return services.KickstartRequest{}, core.Invalid("debtsOverride", "amountMinor is required")
		}
		out.DebtOverrides = append(out.DebtOverrides, services.Override{SourceID: o.DebtID, AmountMinor: *o.AmountMinor})
	}
	for _, o := range req.IncomesOverride {
		if o.AmountMinor == nil {
			return services.KickstartRequest{}, core.Invalid("incomesOverride", "amountMinor is required")
		}
		out.IncomeOverrides = append(out.IncomeOverrides, services.Override{SourceID: o.IncomeID, AmountMinor: *o.AmountMinor})
	}
	return out, nil
}

func (req debtRequest) toInput() (services.DebtInput, error) {
	cents, err := parseAmount("amount", req.Amount, req.AmountCents)
	if err != nil {
		return services.DebtInput{}, err
	}
	purchased, err := parseOptionalDate("purchasedAt", req.PurchasedAt)
	if err != nil {
		return services.DebtInput{}, err
	}
	first, err := parseRequiredDate("firstPaymentDate", req.FirstPaymentDate)
	if err != nil {
		return services.DebtInput{}, err
	}
	in := services.DebtInput{
		OwnerID:          req.OwnerID,
		Name:             sanitizeInput(req.Name),
		Amount:           core.Money{Cents: cents, Currency: req.Currency},
		PurchasedAt:      purchased,
		FirstPaymentDate: first,
		HasEnd:           req.HasEnd,
		Installments:     req.Installments,
	}
	if req.Reimbursement != nil {
		in.Reimbursement = &services.Reimbursement{PayerID: req.Reimbursement.PayerID, AmountCents: req.Reimbursement.AmountCents}
	}
	return in, nil
}

func (req incomeRequest) toInput() (services.IncomeInput, error) {
	cents, err := parseAmount("amount", req.Amount, req.AmountCents)
	if err != nil {
		return services.IncomeInput{}, err
	}
	first, err := parseRequiredDate("firstIncomeDate", req.FirstIncomeDate)
	if err != nil {
		return services.IncomeInput{}, err
	}
	return services.IncomeInput{
		PayerID:          req.PayerID,
		Name:             sanitizeInput(req.Name),
		Amount:           core.Money{Cents: cents, Currency: req.Currency},
		FirstIncomeDate:  first,
		IsRecurrent:      req.IsRecurrent,
		NumberOfPayments: req.NumberOfPayments,
	}, nil
}

func (req expenseRequest) toExpense() (core.Expense, error) {
	cents, err := parseAmount("amount", req.Amount, req.AmountCents)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Name:        sanitizeInput(req.Name),
		AmountCents: cents,
		Date:        date,
		Category:    sanitizeInput(req.Category),
		Note:        sanitizeInput(req.Note),
	}, nil
}
