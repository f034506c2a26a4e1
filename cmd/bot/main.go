package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"deadlinebot/internal/canvas"
	"deadlinebot/internal/config"
	"deadlinebot/internal/ledger"
	"deadlinebot/internal/notifier"
	"deadlinebot/internal/reminder"
	"deadlinebot/internal/storage"
	kit "deadlinebot/internal/transport"
	"deadlinebot/internal/transport/telegram"
	logx "deadlinebot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Bootstrap logger for everything that happens before the config (and
	// with it the real log service) is loaded.
	boot := logx.NewConsole("info")

	if err := run(ctx, cfgPath, boot); err != nil {
		boot.Error("fatal", logx.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, boot logx.Logger) error {
	mgr := config.NewManager(cfgPath)
	mgr.SetLogger(boot)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("svc", "config")))

	thresholds, err := cfg.Reminder.ParseThresholds()
	if err != nil {
		return err
	}
	pollInterval := cfg.Reminder.PollIntervalOrDefault()

	// Ledger storage. Disabled storage is allowed but loud: a restart may
	// re-send reminders that already fired.
	var storeCfg storage.Config
	if s := cfg.Storage; s != nil {
		busy, _ := config.ParseDuration("storage.busy_timeout", s.BusyTimeout)
		storeCfg = storage.Config{Driver: s.Driver, Path: s.Path, BusyTimeout: busy}
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("svc", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	ldg, err := ledger.Open(ctx, store, log.With(logx.String("svc", "ledger")))
	if err != nil {
		return err
	}

	source := canvas.NewClient(canvas.Config{
		BaseURL:   cfg.Canvas.BaseURL,
		Token:     cfg.Canvas.Token,
		CourseIDs: cfg.Canvas.CourseIDs,
		Horizon:   cfg.Canvas.HorizonOrDefault(),
	}, log.With(logx.String("svc", "canvas")))

	pollTimeout, _ := config.ParseDuration("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("svc", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	var ncfg notifier.Config
	if n := cfg.Notifier; n != nil {
		base, _ := config.ParseDuration("notifier.retry_base", n.RetryBase)
		maxDelay, _ := config.ParseDuration("notifier.retry_max_delay", n.RetryMaxDelay)
		ncfg = notifier.Config{
			RatePerSec:    n.RatePerSec,
			RetryMax:      n.RetryMax,
			RetryBase:     base,
			RetryMaxDelay: maxDelay,
		}
	}
	sender := notifier.New(ncfg, adapter, kit.ChatTarget{ChatID: cfg.Telegram.ChatID},
		log.With(logx.String("svc", "notifier")))

	engine := reminder.NewEngine(reminder.Options{
		Thresholds:       thresholds,
		ChatID:           cfg.Telegram.ChatID,
		PollInterval:     pollInterval,
		Retention:        cfg.Reminder.RetentionOrDefault(),
		Staleness:        cfg.Reminder.StalenessOrDefault(),
		RecordBeforeSend: cfg.Reminder.RecordBeforeSend,
		Digests:          cfg.Reminder.Digests,
	}, source, ldg, sender, log.With(logx.String("svc", "reminder")))

	if err := adapter.Start(ctx, engine.Updates()); err != nil {
		return fmt.Errorf("start telegram: %w", err)
	}

	// Only the logging level is re-applied at runtime; everything else
	// requires a restart.
	go func() { _ = mgr.Watch(ctx, logSvc.SetLevel) }()

	if err := sender.Send(ctx, reminder.StartupMessage(thresholds, pollInterval)); err != nil {
		log.Warn("startup announcement failed", logx.Err(err))
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		log.Debug("sd_notify: ready")
	}

	log.Info("bot started",
		logx.Int64("chat_id", cfg.Telegram.ChatID),
		logx.Duration("poll_interval", pollInterval),
		logx.Int("thresholds", len(thresholds)))

	runErr := engine.Run(ctx)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := adapter.Stop(stopCtx); err != nil {
		log.Warn("telegram stop", logx.Err(err))
	}

	log.Info("bot stopped")
	return runErr
}
