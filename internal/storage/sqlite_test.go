package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"remindbot/internal/recurrence"
	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "remindbot.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestReminderRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	next := time.Date(2024, time.January, 10, 22, 30, 0, 0, time.UTC)
	in := reminder.Reminder{
		ChatID:  42,
		Message: "pay rent",
		Rule: recurrence.Rule{
			Frequency: recurrence.Monthly,
			Hour:      14, Minute: 30,
			MonthDay: 31,
		},
		Active:      true,
		NextTrigger: next,
	}

	created, err := st.CreateReminder(ctx, in)
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := st.GetReminder(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if got.Rule.Frequency != recurrence.Monthly || got.Rule.MonthDay != 31 {
		t.Fatalf("rule mangled: %+v", got.Rule)
	}
	if !got.NextTrigger.Equal(next) {
		t.Fatalf("NextTrigger = %v, want %v", got.NextTrigger, next)
	}
	if !got.Active || got.LastFired != nil {
		t.Fatalf("fresh reminder state wrong: active=%v lastFired=%v", got.Active, got.LastFired)
	}
}

func TestReminderTargetDateRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	in := reminder.Reminder{
		ChatID:  7,
		Message: "dentist",
		Rule: recurrence.Rule{
			Frequency: recurrence.Once,
			Hour:      9, Minute: 15,
			Date: &recurrence.Date{Year: 2024, Month: time.March, Day: 14},
		},
		Active:      true,
		NextTrigger: time.Date(2024, time.March, 14, 16, 15, 0, 0, time.UTC),
	}

	created, err := st.CreateReminder(ctx, in)
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	got, err := st.GetReminder(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if got.Rule.Date == nil || *got.Rule.Date != (recurrence.Date{Year: 2024, Month: time.March, Day: 14}) {
		t.Fatalf("target date mangled: %+v", got.Rule.Date)
	}
}

func TestFindDueSnapshot(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

	mk := func(msg string, next time.Time, active bool) reminder.Reminder {
		rec, err := st.CreateReminder(ctx, reminder.Reminder{
			ChatID: 1, Message: msg,
			Rule:   recurrence.Rule{Frequency: recurrence.Daily, Hour: 9},
			Active: active, NextTrigger: next,
		})
		if err != nil {
			t.Fatalf("CreateReminder(%s): %v", msg, err)
		}
		return rec
	}

	mk("past", now.Add(-time.Hour), true)
	atNow := mk("exactly now", now, true)
	mk("future", now.Add(time.Hour), true)
	mk("inactive past", now.Add(-time.Hour), false)

	due, err := st.FindDue(ctx, now)
	if err != nil {
		t.Fatalf("FindDue: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("FindDue returned %d records, want 2", len(due))
	}
	// A trigger scheduled for exactly now is due, not future.
	found := false
	for _, r := range due {
		if r.ID == atNow.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("record with next_trigger == now missing from due set")
	}
}

func TestSaveReminder(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	rec, err := st.CreateReminder(ctx, reminder.Reminder{
		ChatID: 1, Message: "daily",
		Rule:        recurrence.Rule{Frequency: recurrence.Daily, Hour: 9},
		Active:      true,
		NextTrigger: time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	fired := time.Date(2024, time.January, 10, 9, 0, 30, 0, time.UTC)
	rec.Active = false
	rec.LastFired = &fired
	if err := st.SaveReminder(ctx, rec); err != nil {
		t.Fatalf("SaveReminder: %v", err)
	}

	got, err := st.GetReminder(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if got.Active {
		t.Fatal("reminder should be inactive after save")
	}
	if got.LastFired == nil || !got.LastFired.Equal(fired) {
		t.Fatalf("LastFired = %v, want %v", got.LastFired, fired)
	}

	if err := st.SaveReminder(ctx, reminder.Reminder{ID: 9999}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveReminder(missing) = %v, want ErrNotFound", err)
	}
}

func TestGetReminderNotFound(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	if _, err := st.GetReminder(context.Background(), 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWeeklyConfigLifecycle(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	created, err := st.CreateWeeklyConfig(ctx, WeeklyConfig{
		ChatID:  42,
		Message: "weekly standup",
		Weekday: time.Friday, Hour: 18, Minute: 30,
		Timezone: "America/Los_Angeles",
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("CreateWeeklyConfig: %v", err)
	}

	list, err := st.ListWeeklyConfigs(ctx, true)
	if err != nil {
		t.Fatalf("ListWeeklyConfigs: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("enabled list = %+v", list)
	}
	if list[0].Weekday != time.Friday || list[0].Timezone != "America/Los_Angeles" {
		t.Fatalf("config mangled: %+v", list[0])
	}
	if list[0].LastFired != nil {
		t.Fatal("fresh config should have no last_fired")
	}

	fired := time.Date(2024, time.January, 12, 18, 30, 0, 0, time.UTC)
	if err := st.MarkWeeklyFired(ctx, created.ID, fired); err != nil {
		t.Fatalf("MarkWeeklyFired: %v", err)
	}
	list, err = st.ListWeeklyConfigs(ctx, true)
	if err != nil {
		t.Fatalf("ListWeeklyConfigs: %v", err)
	}
	if list[0].LastFired == nil || !list[0].LastFired.Equal(fired) {
		t.Fatalf("LastFired = %v, want %v", list[0].LastFired, fired)
	}

	if err := st.SetWeeklyEnabled(ctx, created.ID, false); err != nil {
		t.Fatalf("SetWeeklyEnabled: %v", err)
	}
	list, err = st.ListWeeklyConfigs(ctx, true)
	if err != nil {
		t.Fatalf("ListWeeklyConfigs: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("disabled config still listed as enabled: %+v", list)
	}
	all, err := st.ListWeeklyConfigs(ctx, false)
	if err != nil {
		t.Fatalf("ListWeeklyConfigs(all): %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("full list = %+v", all)
	}

	if err := st.MarkWeeklyFired(ctx, 9999, fired); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkWeeklyFired(missing) = %v, want ErrNotFound", err)
	}
}
