// Package reminder holds the reminder record and its fire/reschedule
// lifecycle. The transition is a pure function: callers own persistence
// of the returned state.
package reminder

import (
	"time"

	"remindbot/internal/recurrence"
)

// Reminder is one scheduled notification. Active and NextTrigger are
// only ever mutated by Fire; the command layer creates and cancels,
// nothing else.
type Reminder struct {
	ID      int64
	ChatID  int64
	Message string
	Rule    recurrence.Rule

	Active      bool
	NextTrigger time.Time
	LastFired   *time.Time
	CreatedAt   time.Time
}

// Fire advances a due reminder through one firing: a Once reminder is
// deactivated (its NextTrigger is no longer consulted), anything else
// stays active with NextTrigger recomputed from now.
//
// Firing an already-inactive reminder is a no-op returning the input
// unchanged; the poller can race a cancel between query and fire.
func Fire(rec Reminder, now time.Time, loc *time.Location) (Reminder, error) {
	if !rec.Active {
		return rec, nil
	}

	if rec.Rule.Frequency == recurrence.Once {
		fired := now
		rec.Active = false
		rec.LastFired = &fired
		return rec, nil
	}

	next, err := recurrence.NextTrigger(rec.Rule, now, loc)
	if err != nil {
		return rec, err
	}
	fired := now
	rec.NextTrigger = next
	rec.LastFired = &fired
	return rec, nil
}
