package core

import (
	"fmt"
	"strings"
)

// ChangeType is the mutation that produced a SyncEvent.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"

	TableDebts   = "debts"
	TableIncomes = "incomes"
)

// SyncEvent notifies that one debt or income row changed. It is the payload of
// the sync webhook and of the queued sync trigger.
type SyncEvent struct {
	Table     string     `json:"table"`
	Type      ChangeType `json:"type,omitempty"`
	Record    *Record    `json:"record,omitempty"`
	OldRecord *Record    `json:"old_record,omitempty"`
}

// Record is a debt or income row as carried by a SyncEvent. Dates are ISO
// dates; a timestamp suffix is tolerated.
type Record struct {
	ID               string `json:"id"`
	WorkspaceID      string `json:"workspace_id"`
	OwnerID          string `json:"owner_id,omitempty"`
	PayerID          string `json:"payer_id,omitempty"`
	Name             string `json:"name,omitempty"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	FirstPaymentDate string `json:"first_payment_date,omitempty"`
	FirstIncomeDate  string `json:"first_income_date,omitempty"`
	HasEnd           *bool  `json:"has_end,omitempty"`
	IsRecurrent      *bool  `json:"is_recurrent,omitempty"`
	Installments     int    `json:"installments,omitempty"`
	NumberOfPayments int    `json:"number_of_payments,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
}

// Source is the part of a debt or income the cycle engine works with.
type Source struct {
	ID          string
	WorkspaceID string
	Kind        Kind
	GroupID     string
	Name        string
	Amount      Money
	Schedule    Schedule
	Count       int
}

func (d Debt) Source() Source {
	return Source{
		ID:          d.ID,
		WorkspaceID: d.WorkspaceID,
		Kind:        KindDebt,
		GroupID:     d.OwnerID,
		Name:        d.Name,
		Amount:      d.Amount,
		Schedule:    d.Schedule(),
		Count:       d.Installments,
	}
}

func (i Income) Source() Source {
	return Source{
		ID:          i.ID,
		WorkspaceID: i.WorkspaceID,
		Kind:        KindIncome,
		GroupID:     i.PayerID,
		Name:        i.Name,
		Amount:      i.Amount,
		Schedule:    i.Schedule(),
		Count:       i.NumberOfPayments,
	}
}

// KindForTable maps a sync table name to the line item kind it feeds.
func KindForTable(table string) (Kind, error) {
	switch table {
	case TableDebts:
		return KindDebt, nil
	case TableIncomes:
		return KindIncome, nil
	default:
		return "", Invalid("table", fmt.Sprintf("unsupported table %q", table))
	}
}

func (t ChangeType) Validate() error {
	switch t {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return nil
	default:
		return Invalid("type", fmt.Sprintf("unsupported change type %q", t))
	}
}

// Validate checks the event shape. A missing Type means UPDATE.
func (e *SyncEvent) Validate() error {
	if e.Type == "" {
		e.Type = ChangeUpdate
	}
	if err := e.Type.Validate(); err != nil {
		return err
	}
	if _, err := KindForTable(e.Table); err != nil {
		return err
	}
	if e.Record == nil && e.OldRecord == nil {
		return Invalid("record", "record is required")
	}
	if e.Type != ChangeDelete && e.Record == nil {
		return Invalid("record", "record is required for inserts and updates")
	}
	for _, r := range []*Record{e.Record, e.OldRecord} {
		if r != nil && strings.TrimSpace(r.ID) == "" {
			return Invalid("record.id", "id is required")
		}
	}
	return nil
}

// Subject returns the record identifying the changed row.
func (e SyncEvent) Subject() *Record {
	if e.Record != nil {
		return e.Record
	}
	return e.OldRecord
}

func parseRecordDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if len(s) > len("2006-01-02") {
		s = s[:len("2006-01-02")]
	}
	return ParseDate(s)
}

// Source converts the row into the engine's view of it for the given table.
func (r Record) Source(table string) (Source, error) {
	kind, err := KindForTable(table)
	if err != nil {
		return Source{}, err
	}
	end, err := parseRecordDate(r.EndDate)
	if err != nil {
		return Source{}, Invalid("end_date", err.Error())
	}

	if kind == KindDebt {
		first, err := parseRecordDate(r.FirstPaymentDate)
		if err != nil || first.IsZero() {
			return Source{}, Invalid("first_payment_date", "valid date is required")
		}
		hasEnd := !end.IsZero() || r.Installments > 0
		if r.HasEnd != nil {
			hasEnd = *r.HasEnd
		}
		d := Debt{
			ID: r.ID, WorkspaceID: r.WorkspaceID, OwnerID: r.OwnerID, Name: r.Name,
			Amount:           Money{Cents: r.Amount, Currency: strings.ToUpper(r.Currency)},
			FirstPaymentDate: first, HasEnd: hasEnd, Installments: r.Installments, EndDate: end,
		}
		if hasEnd && end.IsZero() {
			d = d.WithDerivedEnd()
		}
		return d.Source(), nil
	}

	first, err := parseRecordDate(r.FirstIncomeDate)
	if err != nil || first.IsZero() {
		return Source{}, Invalid("first_income_date", "valid date is required")
	}
	recurrent := end.IsZero() && r.NumberOfPayments == 0
	if r.IsRecurrent != nil {
		recurrent = *r.IsRecurrent
	}
	i := Income{
		ID: r.ID, WorkspaceID: r.WorkspaceID, PayerID: r.PayerID, Name: r.Name,
		Amount:          Money{Cents: r.Amount, Currency: strings.ToUpper(r.Currency)},
		FirstIncomeDate: first, IsRecurrent: recurrent, NumberOfPayments: r.NumberOfPayments, EndDate: end,
	}
	if !recurrent && end.IsZero() {
		if i.NumberOfPayments < 1 {
			i.NumberOfPayments = 1
		}
		i = i.WithDerivedEnd()
	}
	return i.Source(), nil
}

func boolPtr(b bool) *bool { return &b }

func dateField(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// DebtRecord renders a debt as a sync row.
func DebtRecord(d Debt) *Record {
	return &Record{
		ID: d.ID, WorkspaceID: d.WorkspaceID, OwnerID: d.OwnerID, Name: d.Name,
		Amount: d.Amount.Cents, Currency: d.Amount.Currency,
		FirstPaymentDate: dateField(d.FirstPaymentDate), HasEnd: boolPtr(d.HasEnd),
		Installments: d.Installments, EndDate: dateField(d.EndDate),
	}
}

// IncomeRecord renders an income as a sync row.
func IncomeRecord(i Income) *Record {
	return &Record{
		ID: i.ID, WorkspaceID: i.WorkspaceID, PayerID: i.PayerID, Name: i.Name,
		Amount: i.Amount.Cents, Currency: i.Amount.Currency,
		FirstIncomeDate: dateField(i.FirstIncomeDate), IsRecurrent: boolPtr(i.IsRecurrent),
		NumberOfPayments: i.NumberOfPayments, EndDate: dateField(i.EndDate),
	}
}
