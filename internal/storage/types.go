package storage

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/reminder"
)

var ErrNotFound = errors.New("storage: not found")

// Config configures storage.
//
// Driver values: "sqlite" (default when empty). BusyTimeout maps to
// the sqlite busy_timeout pragma; 0 keeps the driver default.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration
}

// WeeklyConfig is one weekly announcement slot for a chat. LastFired
// is audit state written by the poller; the schedule calculator never
// reads it.
type WeeklyConfig struct {
	ID      int64
	ChatID  int64
	Message string

	Weekday time.Weekday
	Hour    int
	Minute  int
	// Timezone is the IANA zone the slot is read in (unlike reminders,
	// which share the process timezone).
	Timezone string

	Enabled   bool
	LastFired *time.Time
	CreatedAt time.Time
}

// Store is the persistence API consumed by the poller and the
// command-layer service.
type Store interface {
	CreateReminder(ctx context.Context, rec reminder.Reminder) (reminder.Reminder, error)
	GetReminder(ctx context.Context, id int64) (reminder.Reminder, error)
	ListReminders(ctx context.Context, chatID int64) ([]reminder.Reminder, error)

	// FindDue returns active reminders with next_trigger at or before
	// now. One snapshot per call; the poller relies on each due record
	// appearing at most once per tick.
	FindDue(ctx context.Context, now time.Time) ([]reminder.Reminder, error)
	SaveReminder(ctx context.Context, rec reminder.Reminder) error

	CreateWeeklyConfig(ctx context.Context, cfg WeeklyConfig) (WeeklyConfig, error)
	ListWeeklyConfigs(ctx context.Context, enabledOnly bool) ([]WeeklyConfig, error)
	SetWeeklyEnabled(ctx context.Context, id int64, enabled bool) error
	MarkWeeklyFired(ctx context.Context, id int64, at time.Time) error

	Close() error
}
