/*
Package datemath provides pure calendar arithmetic for the leave engine.

PURPOSE:
  Every temporal rule in the system funnels through this package: how many
  days a leave request spans, how long an employee has been employed, and
  whether a date falls on a weekend. Keeping the arithmetic here means the
  rest of the engine never touches time.Time math directly.

KEY CONCEPTS IN THIS FILE:
  - Date: a calendar day, normalized to UTC midnight. Time-of-day never
    participates in comparisons.
  - DayDifference: INCLUSIVE span count. Start == end is 1 day, a Monday
    through the following Monday is 8. Submission validation and approval
    debits both use this function, so the convention cannot drift.
  - YearsMonthsDays: calendar-correct difference with borrowing, used for
    tenure. Borrowing uses the actual length of the borrowed-from month,
    never a fixed 30.

DESIGN PRINCIPLES:
  1. Purity: no function here reads the clock or has side effects.
  2. Determinism: same inputs, same outputs, regardless of host timezone.
  3. One convention: inclusive day counts everywhere.

USAGE:
  start := datemath.NewDate(2026, time.March, 10)
  end := datemath.NewDate(2026, time.March, 14)
  n, err := datemath.DayDifference(start, end) // 5, nil

SEE ALSO:
  - accrual: converts YearsMonthsDays output into an allowance
  - holiday: combines IsWeekend with the public-holiday set
*/
package datemath

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when a date span ends before it starts.
var ErrInvalidRange = errors.New("invalid range: end before start")

// =============================================================================
// DATE - A calendar day (UTC midnight, day granularity)
// =============================================================================

// Date is a calendar day. The zero value is "unset" and reports IsZero.
type Date struct {
	t time.Time
}

// NewDate constructs a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day, discarding time-of-day
// and timezone. Two instants on the same calendar day compare Equal.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day. Callers that need determinism
// should accept a reference Date instead of calling this.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return DateOf(d.t.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.t.AddDate(0, n, 0)) }
func (d Date) AddYears(n int) Date  { return DateOf(d.t.AddDate(n, 0, 0)) }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// DAY DIFFERENCE - Inclusive span count
// =============================================================================

// DayDifference returns the inclusive number of calendar days spanning
// start..end. DayDifference(d, d) is 1. Returns ErrInvalidRange when end
// is before start.
func DayDifference(start, end Date) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidRange
	}
	return int(end.t.Sub(start.t).Hours()/24) + 1, nil
}

// =============================================================================
// TENURE - Calendar-correct year/month/day difference
// =============================================================================

// YearsMonthsDays returns the calendar difference from start to reference
// as whole years, months and days. When the day component goes negative it
// borrows the day-count of the month preceding the reference (the actual
// month length, so borrowing across February differs from borrowing across
// January). When the month component goes negative it borrows a year.
//
// YearsMonthsDays(d, d) is (0, 0, 0).
func YearsMonthsDays(start, reference Date) (years, months, days int) {
	years = reference.Year() - start.Year()
	months = int(reference.Month()) - int(start.Month())
	days = reference.Day() - start.Day()

	if days < 0 {
		months--
		days += daysInMonth(reference.Year(), reference.Month()-1)
	}
	if months < 0 {
		years--
		months += 12
	}
	return years, months, days
}

// daysInMonth returns the length of the given month. Month may be outside
// 1..12; time.Date normalizes it (month 0 is December of the prior year).
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// WEEKEND
// =============================================================================

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(d Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
