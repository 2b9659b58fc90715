package core

import "time"

// Schedule is the date range of a recurring definition. Open schedules have no
// end and stay active indefinitely from Start.
type Schedule struct {
	Start Date
	Open  bool
	End   Date
}

// Resolution is the outcome of resolving a Schedule against a month.
type Resolution struct {
	Active  bool
	Ordinal int // 1-based; the start month is 1. Zero when inactive.
}

// MonthStart returns the first day of t's calendar month (UTC).
func MonthStart(t time.Time) Date {
	y, m, _ := t.Date()
	return Date{Time: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)}
}

// MonthEnd returns the last day of t's calendar month (UTC).
func MonthEnd(t time.Time) Date {
	y, m, _ := t.Date()
	return Date{Time: time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)}
}

// MonthsBetween counts whole calendar months from a to b, ignoring days.
func MonthsBetween(a, b time.Time) int {
	y1, m1, _ := a.Date()
	y2, m2, _ := b.Date()
	return (y2-y1)*12 + int(m2) - int(m1)
}

// AddMonths adds n calendar months, clamping the day to the target month's
// last day (Jan 31 + 1 month = Feb 28/29).
func AddMonths(d Date, n int) Date {
	y, m, day := d.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := MonthEnd(target).Day()
	if day > last {
		day = last
	}
	return Date{Time: time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, time.UTC)}
}

// DeriveEndDate returns the date of the n-th monthly occurrence starting at first.
func DeriveEndDate(first Date, n int) Date {
	if n < 1 {
		return Date{}
	}
	return AddMonths(DateOf(first.Time), n-1)
}

// Resolve decides whether the schedule applies to the month containing target.
//
// A schedule is active when its start falls inside the month, or when it
// started on/before the month start and either has no end or ends on/after the
// month start. Both boundaries are inclusive.
func (s Schedule) Resolve(target time.Time) Resolution {
	if s.Start.IsZero() {
		return Resolution{}
	}
	ms := MonthStart(target)
	me := MonthEnd(target)
	start := DateOf(s.Start.Time)

	startsInMonth := !start.Before(ms.Time) && !start.After(me.Time)
	runsThrough := !start.After(ms.Time) &&
		(s.Open || (!s.End.IsZero() && !DateOf(s.End.Time).Before(ms.Time)))

	if !startsInMonth && !runsThrough {
		return Resolution{}
	}
	return Resolution{Active: true, Ordinal: MonthsBetween(start.Time, ms.Time) + 1}
}

// ActiveMonths lists the month starts a synchronization must visit.
//
// Bounded schedules cover every month from start through end. Open schedules
// have a single sync point: the current month, or the start month when the
// schedule has not begun yet.
func (s Schedule) ActiveMonths(now time.Time) []Date {
	if s.Start.IsZero() {
		return nil
	}
	first := MonthStart(s.Start.Time)
	if s.Open || s.End.IsZero() {
		current := MonthStart(now)
		if current.Before(first.Time) {
			return []Date{first}
		}
		return []Date{current}
	}
	n := MonthsBetween(first.Time, s.End.Time)
	if n < 0 {
		return []Date{first}
	}
	months := make([]Date, 0, n+1)
	for i := 0; i <= n; i++ {
		months = append(months, AddMonths(first, i))
	}
	return months
}
