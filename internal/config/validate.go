package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Defaults applied when optional duration fields are omitted.
const (
	DefaultHorizon      = 7 * 24 * time.Hour
	DefaultPollInterval = 5 * time.Minute
	DefaultRetention    = 30 * 24 * time.Hour
)

// ParseDuration parses a Go duration string from the named config field.
// An empty field parses to zero, meaning "use the default".
func ParseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %q is not a duration: %w", field, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", field, raw)
	}
	return d, nil
}

// durationOrDefault backs the *OrDefault accessors: unset, zero, or
// unparseable fields yield def. Validate already rejected the unparseable
// case at startup.
func durationOrDefault(field, raw string, def time.Duration) time.Duration {
	d, err := ParseDuration(field, raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validate checks everything the process must refuse to start without.
// Any error returned here is fatal at startup.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if cfg.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required")
	}
	if _, err := ParseDuration("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Canvas.BaseURL) == "" {
		return errors.New("canvas.base_url is required")
	}
	if !strings.HasPrefix(cfg.Canvas.BaseURL, "http://") && !strings.HasPrefix(cfg.Canvas.BaseURL, "https://") {
		return fmt.Errorf("canvas.base_url: %q is not an http(s) URL", cfg.Canvas.BaseURL)
	}
	if strings.TrimSpace(cfg.Canvas.Token) == "" {
		return errors.New("canvas.token is required")
	}
	if _, err := ParseDuration("canvas.horizon", cfg.Canvas.Horizon); err != nil {
		return err
	}

	if _, err := cfg.Reminder.ParseThresholds(); err != nil {
		return err
	}
	if _, err := ParseDuration("reminder.poll_interval", cfg.Reminder.PollInterval); err != nil {
		return err
	}
	if _, err := ParseDuration("reminder.retention", cfg.Reminder.Retention); err != nil {
		return err
	}
	if _, err := ParseDuration("reminder.staleness", cfg.Reminder.Staleness); err != nil {
		return err
	}
	for i, spec := range cfg.Reminder.Digests {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("reminder.digests[%d]: invalid cron spec %q: %w", i, spec, err)
		}
	}

	if n := cfg.Notifier; n != nil {
		if n.RatePerSec < 0 {
			return errors.New("notifier.rate_per_sec must be >= 0")
		}
		if n.RetryMax < 0 {
			return errors.New("notifier.retry_max must be >= 0")
		}
		if _, err := ParseDuration("notifier.retry_base", n.RetryBase); err != nil {
			return err
		}
		if _, err := ParseDuration("notifier.retry_max_delay", n.RetryMaxDelay); err != nil {
			return err
		}
	}

	if s := cfg.Storage; s != nil {
		switch d := strings.ToLower(strings.TrimSpace(s.Driver)); d {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("storage.path is required for driver %q", d)
			}
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", s.Driver)
		}
		if _, err := ParseDuration("storage.busy_timeout", s.BusyTimeout); err != nil {
			return err
		}
	}

	return nil
}

// ParseThresholds returns the reminder lead times, validated non-empty,
// positive, and strictly descending (largest lead time first).
func (c *ReminderConfig) ParseThresholds() ([]time.Duration, error) {
	if len(c.Thresholds) == 0 {
		return nil, errors.New("reminder.thresholds: at least one threshold is required")
	}
	out := make([]time.Duration, 0, len(c.Thresholds))
	for i, raw := range c.Thresholds {
		d, err := ParseDuration(fmt.Sprintf("reminder.thresholds[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("reminder.thresholds[%d]: must be > 0", i)
		}
		if i > 0 && d >= out[i-1] {
			return nil, fmt.Errorf("reminder.thresholds[%d]: thresholds must be strictly descending", i)
		}
		out = append(out, d)
	}
	return out, nil
}

// HorizonOrDefault returns the upcoming-assignment window.
func (c *CanvasConfig) HorizonOrDefault() time.Duration {
	return durationOrDefault("canvas.horizon", c.Horizon, DefaultHorizon)
}

// PollIntervalOrDefault returns the fetch/evaluate cycle interval.
func (c *ReminderConfig) PollIntervalOrDefault() time.Duration {
	return durationOrDefault("reminder.poll_interval", c.PollInterval, DefaultPollInterval)
}

// RetentionOrDefault returns the ledger eviction window.
func (c *ReminderConfig) RetentionOrDefault() time.Duration {
	return durationOrDefault("reminder.retention", c.Retention, DefaultRetention)
}

// StalenessOrDefault returns the snapshot staleness cutoff for !next.
// The default tolerates two missed polls before declaring "no data".
func (c *ReminderConfig) StalenessOrDefault() time.Duration {
	return durationOrDefault("reminder.staleness", c.Staleness, 3*c.PollIntervalOrDefault())
}
