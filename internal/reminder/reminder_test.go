package reminder

import (
	"errors"
	"testing"
	"time"

	"remindbot/internal/recurrence"
)

func TestFireOnceDeactivates(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2024, time.January, 10, 14, 30, 0, 0, loc)

	rec := Reminder{
		ID: 1, ChatID: 42, Message: "water the plants",
		Rule:   recurrence.Rule{Frequency: recurrence.Once, Hour: 14, Minute: 30},
		Active: true, NextTrigger: now,
	}

	got, err := Fire(rec, now, loc)
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if got.Active {
		t.Fatal("Once reminder should be inactive after firing")
	}
	if got.LastFired == nil || !got.LastFired.Equal(now) {
		t.Fatalf("LastFired = %v, want %v", got.LastFired, now)
	}
	if !rec.Active {
		t.Fatal("input record must not be mutated")
	}
}

func TestFireDailyReschedules(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2024, time.January, 10, 14, 30, 0, 0, loc)

	rec := Reminder{
		ID: 2, ChatID: 42, Message: "stand up",
		Rule:   recurrence.Rule{Frequency: recurrence.Daily, Hour: 14, Minute: 30},
		Active: true, NextTrigger: now,
	}

	got, err := Fire(rec, now, loc)
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if !got.Active {
		t.Fatal("Daily reminder should stay active")
	}
	want := time.Date(2024, time.January, 11, 14, 30, 0, 0, loc)
	if !got.NextTrigger.Equal(want) {
		t.Fatalf("NextTrigger = %v, want %v", got.NextTrigger, want)
	}
}

func TestFireInactiveIsNoop(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.January, 10, 14, 30, 0, 0, time.UTC)
	rec := Reminder{
		ID: 3, Active: false,
		Rule:        recurrence.Rule{Frequency: recurrence.Daily, Hour: 9},
		NextTrigger: now.Add(-time.Hour),
	}

	got, err := Fire(rec, now, time.UTC)
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if got != rec {
		t.Fatalf("inactive reminder changed: %+v vs %+v", got, rec)
	}
}

func TestFireInvalidRule(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.January, 10, 14, 30, 0, 0, time.UTC)
	rec := Reminder{
		ID: 4, Active: true,
		Rule: recurrence.Rule{Frequency: recurrence.Monthly, MonthDay: 0, Hour: 9},
	}
	if _, err := Fire(rec, now, time.UTC); !errors.Is(err, recurrence.ErrInvalidRule) {
		t.Fatalf("err = %v, want ErrInvalidRule", err)
	}
}
