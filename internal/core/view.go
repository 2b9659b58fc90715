package core

// ViewItem is a line item enriched with its source definition for display.
type ViewItem struct {
	LineItem
	Name         string
	Installments int  // debts: total installments; incomes: number of payments
	Open         bool // open-ended schedule
}

// CycleView is a month of activity: a materialized Cycle or a forecast.
type CycleView struct {
	CycleID        string // empty for forecasts
	WorkspaceID    string
	Month          Date
	Materialized   bool
	Currency       string
	Debts          []ViewItem
	Incomes        []ViewItem
	Expenses       []Expense
	TotalDebts     int64
	TotalIncomes   int64
	TotalExpenses  int64
	AvailableMoney int64
}

// Tally recomputes the totals from the items and expenses.
func (v *CycleView) Tally() {
	v.TotalDebts, v.TotalIncomes, v.TotalExpenses = 0, 0, 0
	for _, d := range v.Debts {
		v.TotalDebts += d.AmountCents
	}
	for _, i := range v.Incomes {
		v.TotalIncomes += i.AmountCents
	}
	for _, e := range v.Expenses {
		v.TotalExpenses += e.AmountCents
	}
	v.AvailableMoney = v.TotalIncomes - v.TotalDebts - v.TotalExpenses
}

// Groups returns the owner groups (KindDebt) or payer groups (KindIncome).
func (v CycleView) Groups(kind Kind) []Group {
	src := v.Debts
	if kind == KindIncome {
		src = v.Incomes
	}
	items := make([]LineItem, len(src))
	for i, it := range src {
		items[i] = it.LineItem
	}
	return GroupLineItems(items)
}
