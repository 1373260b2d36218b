package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRule reports a rule whose fields don't satisfy its frequency.
// It surfaces at creation time; stored rules are always valid.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Frequency says how a reminder repeats. The set is closed: switches
// over it are exhaustive and adding a value breaks every call site on
// purpose.
type Frequency int

const (
	Once Frequency = iota
	Daily
	Weekly
	Monthly
	Yearly
)

var frequencyNames = map[Frequency]string{
	Once:    "once",
	Daily:   "daily",
	Weekly:  "weekly",
	Monthly: "monthly",
	Yearly:  "yearly",
}

func (f Frequency) String() string {
	if s, ok := frequencyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("frequency(%d)", int(f))
}

// ParseFrequency maps the stored form back to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	for f, name := range frequencyNames {
		if s == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, s)
}

// Date is a plain calendar date, used to pin a Once rule to a specific
// day instead of "today".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) validate() error {
	if d.Month < time.January || d.Month > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidRule, d.Month)
	}
	if d.Day < 1 || d.Day > daysIn(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d out of range for %04d-%02d", ErrInvalidRule, d.Day, d.Year, d.Month)
	}
	return nil
}

// Rule describes when a reminder fires. It is an immutable value: the
// calculator never modifies it.
//
// Exactly the fields required by Frequency are meaningful:
//
//	Once    — optional Date (pinned calendar day)
//	Weekly  — Weekday (Sunday=0)
//	Monthly — MonthDay (1..31, clamped to shorter months)
//	Yearly  — Month + MonthDay
//
// Hour and Minute always apply and are read as wall-clock time in the
// process timezone.
type Rule struct {
	Frequency Frequency
	Hour      int
	Minute    int

	Weekday  time.Weekday
	MonthDay int
	Month    time.Month
	Date     *Date
}

// Validate checks that the fields required by the frequency are present
// and in range. All failures wrap ErrInvalidRule.
func (r Rule) Validate() error {
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidRule, r.Hour)
	}
	if r.Minute < 0 || r.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", ErrInvalidRule, r.Minute)
	}

	switch r.Frequency {
	case Once:
		if r.Date != nil {
			return r.Date.validate()
		}
		return nil
	case Daily:
		return nil
	case Weekly:
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, r.Weekday)
		}
		return nil
	case Monthly:
		if r.MonthDay < 1 || r.MonthDay > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, r.MonthDay)
		}
		return nil
	case Yearly:
		if r.Month < time.January || r.Month > time.December {
			return fmt.Errorf("%w: month %d out of range", ErrInvalidRule, r.Month)
		}
		if r.MonthDay < 1 || r.MonthDay > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, r.MonthDay)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown frequency %d", ErrInvalidRule, int(r.Frequency))
	}
}
