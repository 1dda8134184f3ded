/*
Package workday computes chargeable work days for leave requests.

PURPOSE:
  This package contains the calendar primitives and the work-day
  calculator used when an employee submits a leave request. Weekends and
  public holidays never count against a leave balance; boundary days can
  be flagged as half days and count 0.5.

KEY CONCEPTS IN THIS FILE (calendar.go):
  - Date: A day-granularity calendar date (UTC, no clock component)
  - HalfDay: Which half of a boundary day is taken (morning/afternoon)
  - DateRange: An inclusive start..end span with optional half-day flags
  - HolidaySet: An immutable snapshot of non-working public holidays

DESIGN PRINCIPLES:
  1. Purity: No I/O, no clocks, no globals - holidays are passed in
  2. Precision: decimal.Decimal for half-day amounts, never float64
  3. Determinism: Identical inputs always produce identical output

SEE ALSO:
  - compute.go: The work-day calculation algorithm
  - holiday/german.go: German public-holiday presets feeding HolidaySet
*/
package workday

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar date normalized to UTC midnight.
// The zero value is the zero time and reports IsZero.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date (in UTC).
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{t: t}, nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

// IsWeekend reports Saturday or Sunday (fixed Monday-start work week).
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.t.Format(dateLayout) }

// =============================================================================
// HALF DAY - Boundary-day flags
// =============================================================================

// HalfDay marks which half of a boundary day is consumed.
type HalfDay string

const (
	HalfNone      HalfDay = ""
	HalfMorning   HalfDay = "morning"
	HalfAfternoon HalfDay = "afternoon"
)

// ParseHalfDay validates a half-day flag from external input.
// The empty string means no half day.
func ParseHalfDay(s string) (HalfDay, error) {
	switch HalfDay(s) {
	case HalfNone, HalfMorning, HalfAfternoon:
		return HalfDay(s), nil
	default:
		return HalfNone, fmt.Errorf("invalid half-day flag %q (use morning or afternoon)", s)
	}
}

// =============================================================================
// DATE RANGE - Inclusive leave span with half-day boundary flags
// =============================================================================

// DateRange is an inclusive start..end span. Half-day flags are only
// meaningful on the boundary dates. For a single-day range any half-day
// flag clamps the day to 0.5.
type DateRange struct {
	Start     Date
	End       Date
	StartHalf HalfDay
	EndHalf   HalfDay
}

func NewDateRange(start, end Date) DateRange {
	return DateRange{Start: start, End: end}
}

// Validate checks the range ordering invariant.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Days returns the number of calendar days in the range, inclusive.
// Returns 0 for an invalid range.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.t.Sub(r.Start.t).Hours()/24) + 1
}

// Contains reports whether d falls inside the range (inclusive).
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start, r.End)
}

// =============================================================================
// HOLIDAY SET - Snapshot of non-working public holidays
// =============================================================================

// HolidaySet is a value set of holiday dates. An empty set is valid and
// simply means no holidays are observed. The calculator treats the set
// as an immutable snapshot for the duration of a call.
type HolidaySet map[Date]struct{}

func NewHolidaySet(dates ...Date) HolidaySet {
	s := make(HolidaySet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

func (s HolidaySet) Contains(d Date) bool {
	_, ok := s[d]
	return ok
}

func (s HolidaySet) Add(d Date) { s[d] = struct{}{} }

func (s HolidaySet) Len() int { return len(s) }
