package stats

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// HolidaySet holds non-working calendar dates, keyed by DateOf.
type HolidaySet map[time.Time]struct{}

// DateOf returns the calendar date of t, taken in t's own location,
// as midnight UTC so dates from different zones compare equal.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseHolidays builds a HolidaySet from YYYY-MM-DD strings.
func ParseHolidays(dates []string) (HolidaySet, error) {
	set := make(HolidaySet, len(dates))
	for _, s := range dates {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: expected YYYY-MM-DD", s)
		}
		set[d] = struct{}{}
	}
	return set, nil
}

// Contains reports whether the calendar date of t is a holiday.
func (h HolidaySet) Contains(t time.Time) bool {
	_, ok := h[DateOf(t)]
	return ok
}

// IsBusinessDay reports whether the calendar date of t is a weekday and not a holiday.
func IsBusinessDay(t time.Time, holidays HolidaySet) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !holidays.Contains(t)
}

// BusinessDays counts the business days in the half-open date range
// [date(start), date(end)). It returns 0 when end's date is not after start's.
func BusinessDays(start, end time.Time, holidays HolidaySet) int {
	from, to := DateOf(start), DateOf(end)
	count := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d, holidays) {
			count++
		}
	}
	return count
}

// BusinessDaysWithEnd is BusinessDays plus the end date itself, when the range
// spans at least one date boundary and the end date is a business day.
func BusinessDaysWithEnd(start, end time.Time, holidays HolidaySet) int {
	n := BusinessDays(start, end, holidays)
	if DateOf(end).After(DateOf(start)) && IsBusinessDay(end, holidays) {
		n++
	}
	return n
}
