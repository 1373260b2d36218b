package poller

import (
	"context"
	"time"

	"remindbot/internal/reminder"
	"remindbot/internal/storage"
)

// Config controls the poll loop.
type Config struct {
	Enabled  bool
	Interval time.Duration // default 30s, clamped to [5s, 10m]
	Timezone string        // process timezone for reminder wall-clock math
}

const (
	defaultInterval = 30 * time.Second
	minInterval     = 5 * time.Second
	maxInterval     = 10 * time.Minute
)

// Store is the slice of persistence the poller consumes.
type Store interface {
	FindDue(ctx context.Context, now time.Time) ([]reminder.Reminder, error)
	SaveReminder(ctx context.Context, rec reminder.Reminder) error
	ListWeeklyConfigs(ctx context.Context, enabledOnly bool) ([]storage.WeeklyConfig, error)
	MarkWeeklyFired(ctx context.Context, id int64, at time.Time) error
}
