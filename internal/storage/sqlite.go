package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"remindbot/internal/recurrence"
	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const dateLayout = "2006-01-02"

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const reminderCols = `id, chat_id, message, frequency, hour, minute, weekday, month_day, month, target_date, active, next_trigger, last_fired, created_at`

func (s *sqliteStore) CreateReminder(ctx context.Context, rec reminder.Reminder) (reminder.Reminder, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(chat_id, message, frequency, hour, minute, weekday, month_day, month, target_date, active, next_trigger, last_fired, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ChatID, rec.Message, rec.Rule.Frequency.String(),
		rec.Rule.Hour, rec.Rule.Minute, int(rec.Rule.Weekday), rec.Rule.MonthDay, int(rec.Rule.Month),
		dateText(rec.Rule.Date), rec.Active, rec.NextTrigger.UnixMilli(),
		optMillis(rec.LastFired), rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return reminder.Reminder{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return reminder.Reminder{}, err
	}
	rec.ID = id
	return rec, nil
}

func (s *sqliteStore) GetReminder(ctx context.Context, id int64) (reminder.Reminder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reminderCols+` FROM reminders WHERE id = ?`, id)
	rec, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return reminder.Reminder{}, ErrNotFound
	}
	return rec, err
}

func (s *sqliteStore) ListReminders(ctx context.Context, chatID int64) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderCols+` FROM reminders WHERE chat_id = ? ORDER BY id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReminders(rows)
}

func (s *sqliteStore) FindDue(ctx context.Context, now time.Time) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderCols+` FROM reminders
		 WHERE active = 1 AND next_trigger <= ?
		 ORDER BY next_trigger`, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReminders(rows)
}

func (s *sqliteStore) SaveReminder(ctx context.Context, rec reminder.Reminder) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET active = ?, next_trigger = ?, last_fired = ? WHERE id = ?`,
		rec.Active, rec.NextTrigger.UnixMilli(), optMillis(rec.LastFired), rec.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *sqliteStore) CreateWeeklyConfig(ctx context.Context, cfg WeeklyConfig) (WeeklyConfig, error) {
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO weekly_configs(chat_id, message, weekday, hour, minute, timezone, enabled, last_fired, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		cfg.ChatID, cfg.Message, int(cfg.Weekday), cfg.Hour, cfg.Minute,
		cfg.Timezone, cfg.Enabled, optMillis(cfg.LastFired), cfg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return WeeklyConfig{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return WeeklyConfig{}, err
	}
	cfg.ID = id
	return cfg, nil
}

func (s *sqliteStore) ListWeeklyConfigs(ctx context.Context, enabledOnly bool) ([]WeeklyConfig, error) {
	q := `SELECT id, chat_id, message, weekday, hour, minute, timezone, enabled, last_fired, created_at FROM weekly_configs`
	if enabledOnly {
		q += ` WHERE enabled = 1`
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WeeklyConfig
	for rows.Next() {
		var (
			cfg       WeeklyConfig
			weekday   int
			lastFired sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&cfg.ID, &cfg.ChatID, &cfg.Message, &weekday, &cfg.Hour, &cfg.Minute,
			&cfg.Timezone, &cfg.Enabled, &lastFired, &createdAt); err != nil {
			return nil, err
		}
		cfg.Weekday = time.Weekday(weekday)
		cfg.LastFired = millisPtr(lastFired)
		cfg.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SetWeeklyEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE weekly_configs SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *sqliteStore) MarkWeeklyFired(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE weekly_configs SET last_fired = ? WHERE id = ?`, at.UnixMilli(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (reminder.Reminder, error) {
	var (
		rec         reminder.Reminder
		freq        string
		weekday     int
		month       int
		targetDate  sql.NullString
		nextTrigger int64
		lastFired   sql.NullInt64
		createdAt   int64
	)
	err := row.Scan(&rec.ID, &rec.ChatID, &rec.Message, &freq,
		&rec.Rule.Hour, &rec.Rule.Minute, &weekday, &rec.Rule.MonthDay, &month,
		&targetDate, &rec.Active, &nextTrigger, &lastFired, &createdAt)
	if err != nil {
		return reminder.Reminder{}, err
	}

	f, err := recurrence.ParseFrequency(freq)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("reminder %d: %w", rec.ID, err)
	}
	rec.Rule.Frequency = f
	rec.Rule.Weekday = time.Weekday(weekday)
	rec.Rule.Month = time.Month(month)
	if targetDate.Valid {
		d, err := parseDateText(targetDate.String)
		if err != nil {
			return reminder.Reminder{}, fmt.Errorf("reminder %d: %w", rec.ID, err)
		}
		rec.Rule.Date = d
	}
	rec.NextTrigger = time.UnixMilli(nextTrigger)
	rec.LastFired = millisPtr(lastFired)
	rec.CreatedAt = time.UnixMilli(createdAt)
	return rec, nil
}

func collectReminders(rows *sql.Rows) ([]reminder.Reminder, error) {
	var out []reminder.Reminder
	for rows.Next() {
		rec, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func dateText(d *recurrence.Date) any {
	if d == nil {
		return nil
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

func parseDateText(s string) (*recurrence.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("bad target date %q: %w", s, err)
	}
	return &recurrence.Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func optMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
