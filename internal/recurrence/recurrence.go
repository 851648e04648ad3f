// Package recurrence computes the next occurrence date of a scheduled
// transaction. All functions are pure: no clock reads, no I/O.
package recurrence

import "time"

// Pattern identifies one of the supported recurrence rules.
type Pattern string

const (
	Daily          Pattern = "daily"
	Weekly         Pattern = "weekly"
	BiWeekly       Pattern = "bi_weekly"
	Monthly        Pattern = "monthly"
	MonthlyLastDay Pattern = "monthly_last_day"
	Yearly         Pattern = "yearly"
	EveryFriday    Pattern = "every_friday"
	EverySaturday  Pattern = "every_saturday"
	EveryWeekday   Pattern = "every_weekday"
)

// advance maps each pattern to its date-advance function. Keeping the
// dispatch table-driven means a new pattern only touches this map.
var advance = map[Pattern]func(t time.Time, step int) time.Time{
	Daily:  func(t time.Time, step int) time.Time { return t.AddDate(0, 0, step) },
	Weekly: func(t time.Time, step int) time.Time { return t.AddDate(0, 0, 7*step) },
	// BiWeekly ignores the step value. Observed product behavior; kept as-is.
	BiWeekly: func(t time.Time, _ int) time.Time { return t.AddDate(0, 0, 14) },
	Monthly:  addMonths,
	// MonthlyLastDay advances exactly one month and snaps to that month's
	// last calendar day. Also ignores the step value.
	MonthlyLastDay: func(t time.Time, _ int) time.Time {
		next := addMonths(t, 1)
		y, m, _ := next.Date()
		return time.Date(y, m, lastDayOfMonth(y, m), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	},
	Yearly: func(t time.Time, step int) time.Time { return addMonths(t, 12*step) },
	EveryFriday: func(t time.Time, _ int) time.Time {
		return nextWeekday(t, time.Friday)
	},
	EverySaturday: func(t time.Time, _ int) time.Time {
		return nextWeekday(t, time.Saturday)
	},
	EveryWeekday: func(t time.Time, _ int) time.Time {
		next := t.AddDate(0, 0, 1)
		for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
			next = next.AddDate(0, 0, 1)
		}
		return next
	},
}

// Valid reports whether p is a known pattern.
func Valid(p Pattern) bool {
	_, ok := advance[p]
	return ok
}

// Patterns returns all supported patterns.
func Patterns() []Pattern {
	return []Pattern{
		Daily, Weekly, BiWeekly, Monthly, MonthlyLastDay,
		Yearly, EveryFriday, EverySaturday, EveryWeekday,
	}
}

// Next returns the occurrence that follows current under the given pattern.
// A step value of zero or below is treated as 1. The time-of-day of current
// is preserved. An unknown pattern returns current unchanged; callers
// validate patterns at save time.
func Next(current time.Time, p Pattern, step int) time.Time {
	if step <= 0 {
		step = 1
	}
	fn, ok := advance[p]
	if !ok {
		return current
	}
	return fn(current, step)
}

// addMonths adds n months clamping the day-of-month to the length of the
// target month, so Jan 31 + 1 month is Feb 28 (or 29), not Mar 2.
// time.AddDate normalizes overflow instead, which is not what a ledger wants.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	months := int(m) - 1 + n
	y += months / 12
	months %= 12
	if months < 0 {
		months += 12
		y--
	}
	month := time.Month(months + 1)
	if last := lastDayOfMonth(y, month); d > last {
		d = last
	}
	return time.Date(y, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// nextWeekday returns the next strictly-future date falling on w. If t is
// already on w the result is a full week later, never t itself.
func nextWeekday(t time.Time, w time.Weekday) time.Time {
	next := t.AddDate(0, 0, 1)
	for next.Weekday() != w {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
