package config

// Config is the full process configuration. JSON is the canonical
// shape; YAML files are accepted and coerced (see yaml.go). Unknown
// keys are rejected so typos surface on reload instead of silently
// doing nothing.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Poller   PollerConfig   `json:"poller"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// RatePerSec bounds outbound sends (default 3).
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors log lines at or above MinLevel into a chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type StorageConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// PollerConfig controls the due-reminder poll loop.
type PollerConfig struct {
	Enabled bool `json:"enabled"`
	// Interval is a Go duration string (default "30s", clamped to
	// [5s, 10m]).
	Interval string `json:"interval,omitempty"`
	// Timezone is the IANA zone all reminder wall-clock times are read
	// in (e.g. "America/Los_Angeles"). Empty means UTC.
	Timezone string `json:"timezone,omitempty"`
}
