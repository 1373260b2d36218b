package recurrence

import (
	"fmt"
	"time"
)

// WeeklySchedule is the weekly announcement slot: one weekday at a
// fixed wall-clock time. It is deliberately independent from Rule —
// its callers hold config records, not reminders, and it additionally
// exposes human-readable and cron-style views.
type WeeklySchedule struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

func (s WeeklySchedule) Validate() error {
	if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, s.Weekday)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidRule, s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", ErrInvalidRule, s.Minute)
	}
	return nil
}

// NextRun returns the next occurrence after now in loc. Same weekday
// distance math as the Weekly rule: today counts if the slot hasn't
// passed yet, otherwise the schedule waits a full week.
func (s WeeklySchedule) NextRun(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return nextWeekly(now.In(loc), now, s.Weekday, s.Hour, s.Minute)
}

// Describe renders the slot for humans, e.g. "every Friday at 6:30 PM".
func (s WeeklySchedule) Describe() string {
	h := s.Hour % 12
	if h == 0 {
		h = 12
	}
	half := "AM"
	if s.Hour >= 12 {
		half = "PM"
	}
	return fmt.Sprintf("every %s at %d:%02d %s", s.Weekday, h, s.Minute, half)
}

// CronSpec renders the slot as a standard five-field cron expression
// ("MM HH * * D", D with Sunday=0) for config and reporting surfaces.
func (s WeeklySchedule) CronSpec() string {
	return fmt.Sprintf("%d %d * * %d", s.Minute, s.Hour, int(s.Weekday))
}
