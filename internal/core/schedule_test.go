package core

import (
	"testing"
	"time"
)

func TestScheduleResolve_BoundedDebt(t *testing.T) {
	debt := Debt{
		FirstPaymentDate: NewDate(2025, 1, 1),
		HasEnd:           true,
		Installments:     3,
	}.WithDerivedEnd()
	s := debt.Schedule()

	tests := []struct {
		name    string
		month   Date
		active  bool
		ordinal int
	}{
		{"month before start", NewDate(2024, 12, 1), false, 0},
		{"start month", NewDate(2025, 1, 1), true, 1},
		{"second month", NewDate(2025, 2, 1), true, 2},
		{"end month", NewDate(2025, 3, 1), true, 3},
		{"mid-month target in end month", NewDate(2025, 3, 17), true, 3},
		{"month after end", NewDate(2025, 4, 1), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Resolve(tt.month.Time)
			if got.Active != tt.active || got.Ordinal != tt.ordinal {
				t.Errorf("Resolve(%s) = %+v, want active=%v ordinal=%d", tt.month, got, tt.active, tt.ordinal)
			}
		})
	}
}

func TestScheduleResolve_MidMonthStart(t *testing.T) {
	s := Schedule{Start: NewDate(2025, 1, 20), End: NewDate(2025, 2, 20)}

	if r := s.Resolve(NewDate(2025, 1, 1).Time); !r.Active || r.Ordinal != 1 {
		t.Fatalf("start month should be active with ordinal 1, got %+v", r)
	}
	if r := s.Resolve(NewDate(2025, 2, 1).Time); !r.Active || r.Ordinal != 2 {
		t.Fatalf("end month should be active with ordinal 2, got %+v", r)
	}
	if r := s.Resolve(NewDate(2025, 3, 1).Time); r.Active {
		t.Fatalf("month after end should be inactive, got %+v", r)
	}
}

func TestScheduleResolve_OpenEnded(t *testing.T) {
	s := Income{FirstIncomeDate: NewDate(2023, 6, 15), IsRecurrent: true}.Schedule()

	if r := s.Resolve(NewDate(2023, 5, 1).Time); r.Active {
		t.Fatalf("month before start should be inactive")
	}
	for _, month := range []Date{NewDate(2023, 6, 1), NewDate(2024, 1, 1), NewDate(2031, 12, 1)} {
		r := s.Resolve(month.Time)
		if !r.Active {
			t.Fatalf("open schedule should be active in %s", month)
		}
		if want := MonthsBetween(s.Start.Time, month.Time) + 1; r.Ordinal != want {
			t.Fatalf("ordinal in %s = %d, want %d", month, r.Ordinal, want)
		}
	}
}

func TestScheduleActiveMonths(t *testing.T) {
	now := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	t.Run("bounded covers every month", func(t *testing.T) {
		s := Schedule{Start: NewDate(2025, 11, 30), End: NewDate(2026, 2, 28)}
		got := s.ActiveMonths(now)
		want := []Date{NewDate(2025, 11, 1), NewDate(2025, 12, 1), NewDate(2026, 1, 1), NewDate(2026, 2, 1)}
		if len(got) != len(want) {
			t.Fatalf("got %d months, want %d", len(got), len(want))
		}
		for i := range want {
			if !got[i].Equal(want[i].Time) {
				t.Errorf("month %d = %s, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("open schedule syncs the current month", func(t *testing.T) {
		s := Schedule{Start: NewDate(2024, 1, 5), Open: true}
		got := s.ActiveMonths(now)
		if len(got) != 1 || !got[0].Equal(NewDate(2025, 6, 1).Time) {
			t.Fatalf("got %v, want [2025-06-01]", got)
		}
	})

	t.Run("open schedule starting later syncs its start month", func(t *testing.T) {
		s := Schedule{Start: NewDate(2025, 9, 5), Open: true}
		got := s.ActiveMonths(now)
		if len(got) != 1 || !got[0].Equal(NewDate(2025, 9, 1).Time) {
			t.Fatalf("got %v, want [2025-09-01]", got)
		}
	})
}

func TestAddMonthsClampsDay(t *testing.T) {
	cases := []struct {
		in   Date
		n    int
		want Date
	}{
		{NewDate(2025, 1, 31), 1, NewDate(2025, 2, 28)},
		{NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)},
		{NewDate(2025, 12, 15), 2, NewDate(2026, 2, 15)},
		{NewDate(2025, 3, 31), -1, NewDate(2025, 2, 28)},
	}
	for _, tc := range cases {
		if got := AddMonths(tc.in, tc.n); !got.Equal(tc.want.Time) {
			t.Errorf("AddMonths(%s, %d) = %s, want %s", tc.in, tc.n, got, tc.want)
		}
	}
}
