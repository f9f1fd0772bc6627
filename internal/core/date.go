package core

import (
	"fmt"
	"time"
)

// Date is a civil date pinned to UTC midnight. Embedding time.Time keeps
// the comparison helpers available without re-exporting them.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its UTC civil date.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q", ErrInvalidArgument, s)
	}
	return Date{Time: t}, nil
}

// String formats as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// NextOccurrence advances a recurrence cursor by one period. Month-based
// frequencies clamp the day to the target month's length so a rule anchored
// on the 31st lands on Feb 28/29 instead of overflowing into March.
// Unrecognized frequencies advance by one month.
func NextOccurrence(d Date, f Frequency) Date {
	switch f {
	case Daily:
		return d.AddDays(1)
	case Weekly:
		return d.AddDays(7)
	case Biweekly:
		return d.AddDays(14)
	case Quarterly:
		return addMonthsClamped(d, 3)
	case SemiAnnual:
		return addMonthsClamped(d, 6)
	case Annual:
		return addMonthsClamped(d, 12)
	default:
		return addMonthsClamped(d, 1)
	}
}

func addMonthsClamped(d Date, months int) Date {
	year, month, day := d.Date()
	// Normalize to the first of the target month, then clamp the day.
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
