// Package poller runs the interval loop that fires due reminders and
// weekly announcements.
//
// Delivery semantics are at-least-once: a failed state write leaves
// the record due, so it is retried on the next tick; a failed send is
// logged but never undoes the reschedule (a duplicate message beats a
// silently dropped one).
package poller

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/recurrence"
	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// Service is the single stateful actor of the engine: one cron-driven
// loop per process. Running several instances against the same store
// is unsupported (they would double-fire records).
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	store  Store
	sender transport.Sender

	c      *cron.Cron
	runCtx context.Context

	// run carries what a tick needs. It lives outside the service
	// mutex so a cron-launched tick never contends with Apply or Stop
	// waiting on the cron to drain; that contention is a deadlock.
	run atomic.Pointer[runState]

	// inFlight makes ticks non-reentrant: if a sweep outlives the
	// interval, the next tick is skipped instead of overlapping it.
	inFlight atomic.Bool
}

type runState struct {
	ctx context.Context
	loc *time.Location
}

func New(cfg Config, store Store, sender transport.Sender, log logx.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		sender: sender,
		log:    log,
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.runCtx = ctx
	if !s.cfg.Enabled {
		s.log.Info("poller disabled")
		return nil
	}
	return s.startLocked()
}

func (s *Service) startLocked() error {
	loc := s.loadLocationLocked()
	s.run.Store(&runState{ctx: s.runCtx, loc: loc})

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	if interval < minInterval {
		interval = minInterval
	}
	if interval > maxInterval {
		interval = maxInterval
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), s.tick); err != nil {
		return fmt.Errorf("add poll entry: %w", err)
	}
	s.c = c
	c.Start()
	s.log.Info("poller started",
		logx.Duration("interval", interval),
		logx.String("tz", loc.String()))
	return nil
}

// Stop halts the loop, letting an in-flight tick finish within ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.runCtx = nil
	s.run.Store(nil)
	s.mu.Unlock()
	if c == nil {
		return
	}

	done := c.Stop() // resolves when running jobs complete
	select {
	case <-done.Done():
		s.log.Info("poller stopped")
	case <-ctx.Done():
		s.log.Warn("poller stop timed out with a tick still running")
	}
}

// Apply picks up new settings; interval/timezone changes restart the
// loop in place.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	changed := cfg.Enabled != s.cfg.Enabled ||
		cfg.Interval != s.cfg.Interval ||
		cfg.Timezone != s.cfg.Timezone
	s.cfg = cfg
	if s.runCtx == nil || !changed {
		s.mu.Unlock()
		return
	}
	c := s.c
	s.c = nil
	s.mu.Unlock()

	// Drain outside the lock: the wait resolves only after an in-flight
	// tick finishes, and holding the mutex here would also wedge any
	// concurrent Stop.
	if c != nil {
		<-c.Stop().Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil || s.c != nil {
		// Stopped, or a racing Apply already restarted the loop.
		return
	}
	if !s.cfg.Enabled {
		s.run.Store(nil)
		s.log.Info("poller disabled by config reload")
		return
	}
	if err := s.startLocked(); err != nil {
		s.log.Error("poller restart failed", logx.Err(err))
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid poller timezone, falling back to UTC",
			logx.String("tz", tz), logx.Err(err))
		return time.UTC
	}
	return loc
}

func (s *Service) tick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Warn("previous poll tick still running; skipping")
		return
	}
	defer s.inFlight.Store(false)

	st := s.run.Load()
	if st == nil || st.ctx.Err() != nil {
		return
	}

	now := time.Now()
	s.sweepReminders(st.ctx, now, st.loc)
	s.sweepAnnouncements(st.ctx, now)
}

func (s *Service) sweepReminders(ctx context.Context, now time.Time, loc *time.Location) {
	due, err := s.store.FindDue(ctx, now)
	if err != nil {
		s.log.Error("due query failed", logx.Err(err))
		return
	}
	for _, rec := range due {
		// One record's failure must never abort the batch.
		s.fireReminder(ctx, rec, now, loc)
	}
}

func (s *Service) fireReminder(ctx context.Context, rec reminder.Reminder, now time.Time, loc *time.Location) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic firing reminder",
				logx.Int64("id", rec.ID), logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	updated, err := reminder.Fire(rec, now, loc)
	if err != nil {
		// Stored rules are validated at creation; reaching this means a
		// corrupt row. Skip it rather than hammer it every tick.
		s.log.Error("stored reminder has invalid rule",
			logx.Int64("id", rec.ID), logx.Err(err))
		return
	}

	if err := s.store.SaveReminder(ctx, updated); err != nil {
		// Record stays active with a past trigger: next tick retries.
		s.log.Error("reminder state write failed; will retry next tick",
			logx.Int64("id", rec.ID), logx.Err(err))
		return
	}

	to := transport.ChatTarget{ChatID: rec.ChatID}
	if _, err := s.sender.SendText(ctx, to, "🔔 "+rec.Message, nil); err != nil {
		// Fired regardless: redelivering forever is worse than one
		// missed message.
		s.log.Warn("reminder delivery failed",
			logx.Int64("id", rec.ID), logx.Int64("chat", rec.ChatID), logx.Err(err))
		return
	}
	s.log.Debug("reminder fired",
		logx.Int64("id", rec.ID),
		logx.String("frequency", rec.Rule.Frequency.String()),
		logx.Bool("active", updated.Active),
		logx.Time("next", updated.NextTrigger))
}

func (s *Service) sweepAnnouncements(ctx context.Context, now time.Time) {
	configs, err := s.store.ListWeeklyConfigs(ctx, true)
	if err != nil {
		s.log.Error("weekly config query failed", logx.Err(err))
		return
	}
	for _, cfg := range configs {
		s.fireAnnouncement(ctx, cfg, now)
	}
}

func (s *Service) fireAnnouncement(ctx context.Context, cfg storage.WeeklyConfig, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic firing announcement",
				logx.Int64("id", cfg.ID), logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		s.log.Error("weekly config has bad timezone",
			logx.Int64("id", cfg.ID), logx.String("tz", cfg.Timezone), logx.Err(err))
		return
	}
	sched := recurrence.WeeklySchedule{Weekday: cfg.Weekday, Hour: cfg.Hour, Minute: cfg.Minute}
	if err := sched.Validate(); err != nil {
		s.log.Error("weekly config has bad schedule",
			logx.Int64("id", cfg.ID), logx.Err(err))
		return
	}

	// Most recent occurrence at or before now: one calendar week
	// before the next one, resolved in the config's own zone.
	prev := sched.NextRun(now, loc).In(loc).AddDate(0, 0, -7)
	if prev.After(now) {
		return
	}
	baseline := cfg.CreatedAt
	if cfg.LastFired != nil && cfg.LastFired.After(baseline) {
		baseline = *cfg.LastFired
	}
	// Already covered this slot, or the slot predates the config.
	if !baseline.Before(prev) {
		return
	}

	if err := s.store.MarkWeeklyFired(ctx, cfg.ID, now); err != nil {
		s.log.Error("weekly fired write failed; will retry next tick",
			logx.Int64("id", cfg.ID), logx.Err(err))
		return
	}
	to := transport.ChatTarget{ChatID: cfg.ChatID}
	if _, err := s.sender.SendText(ctx, to, "📣 "+cfg.Message, nil); err != nil {
		s.log.Warn("announcement delivery failed",
			logx.Int64("id", cfg.ID), logx.Int64("chat", cfg.ChatID), logx.Err(err))
		return
	}
	s.log.Debug("announcement fired",
		logx.Int64("id", cfg.ID), logx.String("slot", sched.Describe()))
}
