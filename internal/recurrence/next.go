package recurrence

import (
	"time"
)

// NextTrigger computes the next absolute instant at which the rule
// fires, given a reference "now" and the process timezone.
//
// All calendar arithmetic happens in local wall-clock time in loc; the
// local candidate is converted to an instant at the end, so DST shifts
// are resolved by the timezone database, not here.
//
// "Already passed" is non-strict: a candidate equal to now counts as
// due and the rule advances to the following slot. The one exception is
// a Once rule with a pinned Date, which is taken at face value even
// when in the past (an overdue pinned reminder should fire right away,
// not slide to tomorrow).
func NextTrigger(r Rule, now time.Time, loc *time.Location) (time.Time, error) {
	if err := r.Validate(); err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	switch r.Frequency {
	case Once:
		if r.Date != nil {
			return time.Date(r.Date.Year, r.Date.Month, r.Date.Day, r.Hour, r.Minute, 0, 0, loc), nil
		}
		return nextDaily(local, now, r.Hour, r.Minute), nil

	case Daily:
		return nextDaily(local, now, r.Hour, r.Minute), nil

	case Weekly:
		return nextWeekly(local, now, r.Weekday, r.Hour, r.Minute), nil

	case Monthly:
		cand := clamped(local.Year(), local.Month(), r.MonthDay, r.Hour, r.Minute, loc)
		if !cand.After(now) {
			y, m := local.Year(), local.Month()+1
			if m > time.December {
				y, m = y+1, time.January
			}
			// Clamp again: the next month may be shorter or longer.
			cand = clamped(y, m, r.MonthDay, r.Hour, r.Minute, loc)
		}
		return cand, nil

	case Yearly:
		cand := clamped(local.Year(), r.Month, r.MonthDay, r.Hour, r.Minute, loc)
		if !cand.After(now) {
			cand = clamped(local.Year()+1, r.Month, r.MonthDay, r.Hour, r.Minute, loc)
		}
		return cand, nil
	}

	// Unreachable: Validate rejects unknown frequencies.
	return time.Time{}, ErrInvalidRule
}

// nextDaily is today at hh:mm, or tomorrow if that has already passed.
func nextDaily(local, now time.Time, hour, minute int) time.Time {
	cand := at(local, hour, minute)
	if !cand.After(now) {
		cand = at(local.AddDate(0, 0, 1), hour, minute)
	}
	return cand
}

// nextWeekly walks forward to the requested weekday. A delta of zero
// means "later today" unless today's slot has passed, in which case the
// rule waits a full week.
func nextWeekly(local, now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	delta := (int(weekday) - int(local.Weekday()) + 7) % 7
	cand := at(local.AddDate(0, 0, delta), hour, minute)
	if delta == 0 && !cand.After(now) {
		cand = at(local.AddDate(0, 0, 7), hour, minute)
	}
	return cand
}

// at rebuilds day's calendar date at hh:mm local time.
func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// clamped builds year/month at the requested day, reducing the day to
// the month's last valid day when needed (31 in April -> 30, 29 in a
// non-leap February -> 28).
func clamped(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

// daysIn returns the number of days in the month: day zero of the
// following month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
