// Package reminders is the typed command surface over the engine:
// create/cancel/list for reminders, create/toggle/list for weekly
// announcement slots. Parsing of user input happens upstream; this
// layer takes already-structured values and owns validation plus the
// initial trigger computation.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"remindbot/internal/recurrence"
	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

var ErrEmptyMessage = errors.New("reminders: empty message")

// Store is the slice of persistence the command layer consumes.
type Store interface {
	CreateReminder(ctx context.Context, rec reminder.Reminder) (reminder.Reminder, error)
	GetReminder(ctx context.Context, id int64) (reminder.Reminder, error)
	ListReminders(ctx context.Context, chatID int64) ([]reminder.Reminder, error)
	SaveReminder(ctx context.Context, rec reminder.Reminder) error

	CreateWeeklyConfig(ctx context.Context, cfg storage.WeeklyConfig) (storage.WeeklyConfig, error)
	ListWeeklyConfigs(ctx context.Context, enabledOnly bool) ([]storage.WeeklyConfig, error)
	SetWeeklyEnabled(ctx context.Context, id int64, enabled bool) error
}

type Service struct {
	store Store
	log   logx.Logger

	// loc is the process timezone all reminder wall-clock rules are
	// read in. Weekly slots carry their own zone instead.
	loc *time.Location

	clock func() time.Time
}

func New(store Store, loc *time.Location, log logx.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store: store,
		log:   log,
		loc:   loc,
		clock: time.Now,
	}
}

// Create validates the rule, computes the first trigger and persists
// an active record.
func (s *Service) Create(ctx context.Context, chatID int64, message string, rule recurrence.Rule) (reminder.Reminder, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return reminder.Reminder{}, ErrEmptyMessage
	}

	now := s.clock()
	next, err := recurrence.NextTrigger(rule, now, s.loc)
	if err != nil {
		return reminder.Reminder{}, err
	}

	rec, err := s.store.CreateReminder(ctx, reminder.Reminder{
		ChatID:      chatID,
		Message:     message,
		Rule:        rule,
		Active:      true,
		NextTrigger: next,
		CreatedAt:   now.UTC(),
	})
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	s.log.Info("reminder created",
		logx.Int64("id", rec.ID),
		logx.Int64("chat", chatID),
		logx.String("frequency", rule.Frequency.String()),
		logx.Time("next", next))
	return rec, nil
}

// Cancel soft-deactivates a reminder; the row stays for listing.
// Cancelling an already-inactive reminder succeeds silently.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	rec, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Active {
		return nil
	}
	rec.Active = false
	if err := s.store.SaveReminder(ctx, rec); err != nil {
		return fmt.Errorf("cancel reminder %d: %w", id, err)
	}
	s.log.Info("reminder cancelled", logx.Int64("id", id))
	return nil
}

func (s *Service) List(ctx context.Context, chatID int64) ([]reminder.Reminder, error) {
	return s.store.ListReminders(ctx, chatID)
}

// CreateWeekly persists an enabled weekly announcement slot and
// returns it together with a human-readable description of the slot.
func (s *Service) CreateWeekly(ctx context.Context, chatID int64, message string, weekday time.Weekday, hour, minute int, tz string) (storage.WeeklyConfig, string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return storage.WeeklyConfig{}, "", ErrEmptyMessage
	}

	sched := recurrence.WeeklySchedule{Weekday: weekday, Hour: hour, Minute: minute}
	if err := sched.Validate(); err != nil {
		return storage.WeeklyConfig{}, "", err
	}
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return storage.WeeklyConfig{}, "", fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	cfg, err := s.store.CreateWeeklyConfig(ctx, storage.WeeklyConfig{
		ChatID:    chatID,
		Message:   message,
		Weekday:   weekday,
		Hour:      hour,
		Minute:    minute,
		Timezone:  tz,
		Enabled:   true,
		CreatedAt: s.clock().UTC(),
	})
	if err != nil {
		return storage.WeeklyConfig{}, "", fmt.Errorf("create weekly config: %w", err)
	}
	s.log.Info("weekly announcement created",
		logx.Int64("id", cfg.ID),
		logx.Int64("chat", chatID),
		logx.String("slot", sched.Describe()),
		logx.String("tz", tz))
	return cfg, sched.Describe(), nil
}

func (s *Service) ListWeekly(ctx context.Context) ([]storage.WeeklyConfig, error) {
	return s.store.ListWeeklyConfigs(ctx, false)
}

func (s *Service) SetWeeklyEnabled(ctx context.Context, id int64, enabled bool) error {
	if err := s.store.SetWeeklyEnabled(ctx, id, enabled); err != nil {
		return err
	}
	s.log.Info("weekly announcement toggled",
		logx.Int64("id", id), logx.Bool("enabled", enabled))
	return nil
}
