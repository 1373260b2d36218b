package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"remindbot/internal/recurrence"
	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

type fakeStore struct {
	reminders map[int64]reminder.Reminder
	weekly    map[int64]storage.WeeklyConfig
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reminders: make(map[int64]reminder.Reminder),
		weekly:    make(map[int64]storage.WeeklyConfig),
	}
}

func (f *fakeStore) CreateReminder(ctx context.Context, rec reminder.Reminder) (reminder.Reminder, error) {
	f.nextID++
	rec.ID = f.nextID
	f.reminders[rec.ID] = rec
	return rec, nil
}

func (f *fakeStore) GetReminder(ctx context.Context, id int64) (reminder.Reminder, error) {
	rec, ok := f.reminders[id]
	if !ok {
		return reminder.Reminder{}, storage.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) ListReminders(ctx context.Context, chatID int64) ([]reminder.Reminder, error) {
	var out []reminder.Reminder
	for _, rec := range f.reminders {
		if rec.ChatID == chatID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveReminder(ctx context.Context, rec reminder.Reminder) error {
	if _, ok := f.reminders[rec.ID]; !ok {
		return storage.ErrNotFound
	}
	f.reminders[rec.ID] = rec
	return nil
}

func (f *fakeStore) CreateWeeklyConfig(ctx context.Context, cfg storage.WeeklyConfig) (storage.WeeklyConfig, error) {
	f.nextID++
	cfg.ID = f.nextID
	f.weekly[cfg.ID] = cfg
	return cfg, nil
}

func (f *fakeStore) ListWeeklyConfigs(ctx context.Context, enabledOnly bool) ([]storage.WeeklyConfig, error) {
	var out []storage.WeeklyConfig
	for _, cfg := range f.weekly {
		if enabledOnly && !cfg.Enabled {
			continue
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (f *fakeStore) SetWeeklyEnabled(ctx context.Context, id int64, enabled bool) error {
	cfg, ok := f.weekly[id]
	if !ok {
		return storage.ErrNotFound
	}
	cfg.Enabled = enabled
	f.weekly[id] = cfg
	return nil
}

func newTestService(t *testing.T, st *fakeStore) *Service {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	s := New(st, loc, logx.Nop())
	s.clock = func() time.Time {
		return time.Date(2026, time.March, 4, 12, 0, 0, 0, loc)
	}
	return s
}

func TestCreateComputesInitialTrigger(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	s := newTestService(t, st)

	rec, err := s.Create(context.Background(), 100, "  standup  ",
		recurrence.Rule{Frequency: recurrence.Daily, Hour: 9, Minute: 30})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == 0 || !rec.Active {
		t.Fatalf("record = %+v, want persisted active record", rec)
	}
	if rec.Message != "standup" {
		t.Errorf("message = %q, want trimmed", rec.Message)
	}
	// 09:30 already passed on Mar 4, so the first trigger is Mar 5.
	loc := s.loc
	want := time.Date(2026, time.March, 5, 9, 30, 0, 0, loc)
	if !rec.NextTrigger.Equal(want) {
		t.Errorf("NextTrigger = %v, want %v", rec.NextTrigger, want)
	}
}

func TestCreateRejectsEmptyMessage(t *testing.T) {
	t.Parallel()
	s := newTestService(t, newFakeStore())
	_, err := s.Create(context.Background(), 100, "   ",
		recurrence.Rule{Frequency: recurrence.Daily, Hour: 9})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestCreateRejectsInvalidRule(t *testing.T) {
	t.Parallel()
	s := newTestService(t, newFakeStore())
	_, err := s.Create(context.Background(), 100, "x",
		recurrence.Rule{Frequency: recurrence.Monthly, Hour: 9})
	if !errors.Is(err, recurrence.ErrInvalidRule) {
		t.Fatalf("err = %v, want ErrInvalidRule", err)
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	s := newTestService(t, st)

	rec, err := s.Create(context.Background(), 100, "standup",
		recurrence.Rule{Frequency: recurrence.Daily, Hour: 9})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Cancel(context.Background(), rec.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	got, _ := st.GetReminder(context.Background(), rec.ID)
	if got.Active {
		t.Error("reminder should be inactive after Cancel")
	}

	// Cancelling again is a silent no-op.
	if err := s.Cancel(context.Background(), rec.ID); err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if err := s.Cancel(context.Background(), 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing id: err = %v, want ErrNotFound", err)
	}
}

func TestCreateWeekly(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	s := newTestService(t, st)

	cfg, desc, err := s.CreateWeekly(context.Background(), 300, "digest",
		time.Friday, 18, 30, "Europe/Berlin")
	if err != nil {
		t.Fatalf("CreateWeekly: %v", err)
	}
	if !cfg.Enabled || cfg.Timezone != "Europe/Berlin" {
		t.Fatalf("config = %+v", cfg)
	}
	if desc != "every Friday at 6:30 PM" {
		t.Errorf("description = %q", desc)
	}

	if _, _, err := s.CreateWeekly(context.Background(), 300, "digest",
		time.Friday, 18, 30, "Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if _, _, err := s.CreateWeekly(context.Background(), 300, "digest",
		time.Friday, 25, 0, "UTC"); !errors.Is(err, recurrence.ErrInvalidRule) {
		t.Fatalf("bad hour: err = %v, want ErrInvalidRule", err)
	}
}

func TestCreateWeeklyDefaultsToUTC(t *testing.T) {
	t.Parallel()
	s := newTestService(t, newFakeStore())
	cfg, _, err := s.CreateWeekly(context.Background(), 300, "digest",
		time.Monday, 9, 0, "  ")
	if err != nil {
		t.Fatalf("CreateWeekly: %v", err)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", cfg.Timezone)
	}
}

func TestSetWeeklyEnabled(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	s := newTestService(t, st)

	cfg, _, err := s.CreateWeekly(context.Background(), 300, "digest",
		time.Monday, 9, 0, "UTC")
	if err != nil {
		t.Fatalf("CreateWeekly: %v", err)
	}
	if err := s.SetWeeklyEnabled(context.Background(), cfg.ID, false); err != nil {
		t.Fatalf("SetWeeklyEnabled: %v", err)
	}
	enabled, err := st.ListWeeklyConfigs(context.Background(), true)
	if err != nil {
		t.Fatalf("ListWeeklyConfigs: %v", err)
	}
	if len(enabled) != 0 {
		t.Fatalf("enabled configs = %+v, want none", enabled)
	}
	all, err := s.ListWeekly(context.Background())
	if err != nil {
		t.Fatalf("ListWeekly: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("all configs = %+v, want the disabled one listed", all)
	}
}
