package config

type Config struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Canvas   CanvasConfig   `json:"canvas" yaml:"canvas"`

	// Reminder controls the core polling/reminder behavior.
	Reminder ReminderConfig `json:"reminder" yaml:"reminder"`

	// Notifier controls outbound send retry/rate behavior.
	// If omitted, built-in defaults apply.
	Notifier *NotifierConfig `json:"notifier,omitempty" yaml:"notifier,omitempty"`

	// Storage controls the reminder ledger persistence.
	// If omitted, the ledger is kept in memory only (volatile; a restart
	// may re-fire reminders that were already sent).
	Storage *StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token" yaml:"token"`

	// ChatID is the single channel/group this bot pairs with.
	ChatID int64 `json:"chat_id" yaml:"chat_id"`

	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty" yaml:"poll_timeout,omitempty"`
}

// CanvasConfig points at the Canvas LMS instance assignments are fetched from.
type CanvasConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Token   string `json:"token" yaml:"token"`

	// CourseIDs restricts fetching to the listed courses.
	// Empty means all active enrollments.
	CourseIDs []int64 `json:"course_ids,omitempty" yaml:"course_ids,omitempty"`

	// Horizon is how far ahead assignments are considered "upcoming".
	// Go duration string; default "168h" (7 days).
	Horizon string `json:"horizon,omitempty" yaml:"horizon,omitempty"`
}

// ReminderConfig controls when reminders fire.
//
// All durations are Go duration strings (e.g. "30m", "24h").
type ReminderConfig struct {
	// Thresholds are lead times before a due date at which a reminder
	// fires, listed strictly descending (e.g. ["24h", "1h"]).
	Thresholds []string `json:"thresholds" yaml:"thresholds"`

	// PollInterval is the fixed interval between fetch/evaluate cycles.
	PollInterval string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`

	// Retention bounds ledger growth: entries for assignments due more
	// than this long ago are evicted. Default "720h" (30 days).
	Retention string `json:"retention,omitempty" yaml:"retention,omitempty"`

	// Staleness is how old the assignment snapshot may be before !next
	// answers "no data" instead of listing (default 3x poll interval).
	Staleness string `json:"staleness,omitempty" yaml:"staleness,omitempty"`

	// RecordBeforeSend selects the ledger write ordering. The default
	// (false) records after a confirmed send, trading rare duplicate
	// sends for no silent misses.
	RecordBeforeSend bool `json:"record_before_send,omitempty" yaml:"record_before_send,omitempty"`

	// Digests are standard 5-field cron specs for daily digest messages
	// (e.g. ["0 8 * * *", "0 13 * * *"]). Empty disables digests.
	Digests []string `json:"digests,omitempty" yaml:"digests,omitempty"`
}

// NotifierConfig controls outbound message delivery.
//
// All durations are Go duration strings.
type NotifierConfig struct {
	RatePerSec    int    `json:"rate_per_sec,omitempty" yaml:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty" yaml:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty" yaml:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty" yaml:"retry_max_delay,omitempty"`
}

// StorageConfig controls the ledger persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./deadlinebot_store" }
type StorageConfig struct {
	Driver      string `json:"driver" yaml:"driver"`
	Path        string `json:"path" yaml:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string      `json:"level" yaml:"level"`
	Console bool        `json:"console" yaml:"console"`
	File    LoggingFile `json:"file" yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}
