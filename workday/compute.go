/*
compute.go - The chargeable work-day calculation

PURPOSE:
  Computes how many work days a leave request consumes. This is the
  number charged against the employee's leave balance, so the rules are
  strict and fully deterministic:

    - weekends (Sat/Sun) contribute 0
    - public holidays contribute 0
    - a boundary day with a half-day flag contributes 0.5
    - every other day in the range contributes 1

SINGLE-DAY RANGES:
  When start == end, both half-day flags refer to the same day. Setting
  either (or both) clamps the day to 0.5 - a single day can never
  consume less than half or more than one.

EDGE CASES:
  - A range entirely on weekends/holidays yields 0. Zero is a valid
    result and means "no days consumed"; rejecting such requests is the
    caller's decision.
  - An empty holiday set is valid and means no holidays are observed.

EXAMPLE:
  holidays := workday.NewHolidaySet(workday.NewDate(2025, time.January, 6))
  r := workday.DateRange{
      Start: workday.NewDate(2025, time.January, 6),
      End:   workday.NewDate(2025, time.January, 10),
  }
  days, err := workday.Compute(r, holidays) // 4 (Mon is a holiday)

SEE ALSO:
  - calendar.go: Date, DateRange, HolidaySet
  - approval/resolver.go: Uses the result as a rule-matching condition
*/
package workday

import (
	"github.com/shopspring/decimal"
)

var (
	fullDay = decimal.NewFromInt(1)
	halfDay = decimal.NewFromFloat(0.5)
)

// Compute returns the number of chargeable work days in the range.
// The result is a non-negative multiple of 0.5. The holiday set is
// treated as an immutable snapshot; Compute performs no I/O and is safe
// for concurrent use.
func Compute(r DateRange, holidays HolidaySet) (decimal.Decimal, error) {
	if err := r.Validate(); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		if d.IsWeekend() || holidays.Contains(d) {
			continue
		}

		contribution := fullDay
		if d.Equal(r.Start) && r.StartHalf != HalfNone {
			contribution = halfDay
		}
		// For a single-day range this re-assigns 0.5 rather than
		// subtracting twice: the day clamps to half, never to zero.
		if d.Equal(r.End) && r.EndHalf != HalfNone {
			contribution = halfDay
		}

		total = total.Add(contribution)
	}

	return total, nil
}
