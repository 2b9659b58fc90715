package core

import (
	"regexp"
	"strings"
	"time"
)

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"

	KindDebt   Kind = "debt"
	KindIncome Kind = "income"
)

type (
	// Status is the payment state of a materialized line item.
	Status string

	// Kind distinguishes debt and income line items and counterparties.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents    int64
		Currency string
	}

	Workspace struct {
		ID              string
		DefaultCurrency string
		CreatedAt       time.Time
	}

	Member struct {
		ID          string
		WorkspaceID string
		Email       string
		Name        string
	}

	// Counterparty is a DebtOwner (Kind debt) or an IncomePayer (Kind income).
	Counterparty struct {
		ID          string
		WorkspaceID string
		Kind        Kind
		Name        string
	}

	Debt struct {
		ID                    string
		WorkspaceID           string
		OwnerID               string
		Name                  string
		Amount                Money
		PurchasedAt           Date
		FirstPaymentDate      Date
		HasEnd                bool
		Installments          int
		EndDate               Date
		ReimbursementIncomeID string
	}

	Income struct {
		ID               string
		WorkspaceID      string
		PayerID          string
		Name             string
		Amount           Money
		FirstIncomeDate  Date
		IsRecurrent      bool
		NumberOfPayments int
		EndDate          Date
	}

	// Cycle is the durable snapshot of one workspace month, keyed by month start.
	Cycle struct {
		ID          string
		WorkspaceID string
		Month       Date
		CreatedAt   time.Time
	}

	// LineItem is a per-source row of a Cycle. (CycleID, SourceID) is unique.
	LineItem struct {
		ID          string
		CycleID     string
		Kind        Kind
		SourceID    string
		GroupID     string // owner id for debts, payer id for incomes
		AmountCents int64  // base currency
		Ordinal     int
		Status      Status
	}

	// Expense is ad-hoc spend attached to a materialized Cycle.
	Expense struct {
		ID          string
		CycleID     string
		Name        string
		AmountCents int64
		Date        Date
		Category    string
		Note        string
	}
)

var (
	ErrInvalidDay       = Invalid("date", "invalid day")
	ErrInvalidMonth     = Invalid("date", "invalid month")
	ErrInvalidAmount    = Invalid("amount", "invalid amount")
	ErrInvalidCurrency  = Invalid("currency", "invalid currency code")
	ErrEmptyName        = Invalid("name", "empty name")
	ErrNameTooLong      = Invalid("name", "name too long (max 200 characters)")
	ErrInvalidStatus    = Invalid("status", "status must be PENDING or PAID")
	ErrInvalidKind      = Invalid("kind", "kind must be debt or income")
	ErrInvalidCount     = Invalid("installments", "must be at least 1 when the schedule has an end")
	ErrUnexpectedCount  = Invalid("installments", "must be empty for open-ended schedules")
	ErrMissingCounterpt = Invalid("counterparty", "owner or payer id is required")
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("date", "date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("date", "expected YYYY-MM-DD")
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" when empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !currencyCode.MatchString(m.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusPaid:
		return nil
	default:
		return ErrInvalidStatus
	}
}

func (k Kind) Validate() error {
	switch k {
	case KindDebt, KindIncome:
		return nil
	default:
		return ErrInvalidKind
	}
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) == 0 {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

// WithDerivedEnd returns the debt with EndDate recomputed from its installments.
func (d Debt) WithDerivedEnd() Debt {
	if d.HasEnd && d.Installments >= 1 {
		d.EndDate = DeriveEndDate(d.FirstPaymentDate, d.Installments)
	} else {
		d.EndDate = Date{}
	}
	return d
}

func (d Debt) Schedule() Schedule {
	return Schedule{Start: d.FirstPaymentDate, Open: !d.HasEnd, End: d.EndDate}
}

func (d Debt) Validate() error {
	if err := validateName(d.Name); err != nil {
		return err
	}
	if strings.TrimSpace(d.OwnerID) == "" {
		return ErrMissingCounterpt
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := d.FirstPaymentDate.Validate(); err != nil {
		return Invalid("first_payment_date", err.Error())
	}
	if d.HasEnd {
		if d.Installments < 1 {
			return ErrInvalidCount
		}
		if !d.EndDate.Equal(DeriveEndDate(d.FirstPaymentDate, d.Installments).Time) {
			return Invalid("end_date", "must equal first payment date plus installments-1 months")
		}
	} else {
		if d.Installments != 0 {
			return ErrUnexpectedCount
		}
		if !d.EndDate.IsZero() {
			return Invalid("end_date", "open-ended debts have no end date")
		}
	}
	return nil
}

// WithDerivedEnd returns the income with EndDate recomputed from its payment count.
func (i Income) WithDerivedEnd() Income {
	if !i.IsRecurrent && i.NumberOfPayments >= 1 {
		i.EndDate = DeriveEndDate(i.FirstIncomeDate, i.NumberOfPayments)
	} else {
		i.EndDate = Date{}
	}
	return i
}

func (i Income) Schedule() Schedule {
	return Schedule{Start: i.FirstIncomeDate, Open: i.IsRecurrent, End: i.EndDate}
}

func (i Income) Validate() error {
	if err := validateName(i.Name); err != nil {
		return err
	}
	if strings.TrimSpace(i.PayerID) == "" {
		return ErrMissingCounterpt
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if err := i.FirstIncomeDate.Validate(); err != nil {
		return Invalid("first_income_date", err.Error())
	}
	if i.IsRecurrent {
		if i.NumberOfPayments != 0 || !i.EndDate.IsZero() {
			return Invalid("number_of_payments", "recurring incomes have no end")
		}
		return nil
	}
	if i.NumberOfPayments < 1 {
		return Invalid("number_of_payments", "must be at least 1 for fixed incomes")
	}
	if !i.EndDate.Equal(DeriveEndDate(i.FirstIncomeDate, i.NumberOfPayments).Time) {
		return Invalid("end_date", "must equal first income date plus payments-1 months")
	}
	return nil
}

func (c Counterparty) Validate() error {
	if err := c.Kind.Validate(); err != nil {
		return err
	}
	return validateName(c.Name)
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := validateName(e.Name); err != nil {
		return err
	}
	if e.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if len(e.Note) > 1000 {
		return Invalid("note", "note too long (max 1000 characters)")
	}
	return nil
}
