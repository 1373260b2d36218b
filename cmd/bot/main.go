package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"remindbot/internal/config"
	"remindbot/internal/services/poller"
	"remindbot/internal/storage"
	"remindbot/internal/transport/telegram"
	"remindbot/pkg/logx"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	// Console-only bootstrap logger until the config is parsed.
	boot := logx.NewConsole("info")

	mgr := config.NewManager(*cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		boot.Error("config load failed", logx.String("path", *cfgPath), logx.Err(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg, err := telegram.New(telegram.Config{
		Token:      cfg.Telegram.Token,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, boot)
	if err != nil {
		boot.Error("telegram init failed", logx.Err(err))
		return 1
	}

	logSvc, log := logx.New(logxConfig(cfg.Logging), tg)
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	storageCfg, err := storageConfig(cfg.Storage)
	if err != nil {
		log.Error("invalid storage config", logx.Err(err))
		return 1
	}
	store, err := storage.Open(storageCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		log.Error("storage open failed", logx.Err(err))
		return 1
	}
	defer store.Close()

	pollCfg, err := pollerConfig(cfg.Poller)
	if err != nil {
		log.Error("invalid poller config", logx.Err(err))
		return 1
	}
	pol := poller.New(pollCfg, store, tg, log.With(logx.String("comp", "poller")))
	if err := pol.Start(ctx); err != nil {
		log.Error("poller start failed", logx.Err(err))
		return 1
	}

	// Hot reload: logging sinks/level and poller settings follow the
	// file; token and storage path changes need a restart.
	sub := mgr.Subscribe(1)
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config watcher stopped", logx.Err(err))
		}
	}()
	go func() {
		for next := range sub {
			logSvc.Apply(logxConfig(next.Logging))
			pc, err := pollerConfig(next.Poller)
			if err != nil {
				log.Warn("ignoring reloaded poller config", logx.Err(err))
				continue
			}
			pol.Apply(pc)
		}
	}()

	notifySystemd(ctx, log)
	log.Info("remindbot started",
		logx.String("config", *cfgPath),
		logx.String("db", storageCfg.Path),
		logx.Bool("poller", pollCfg.Enabled))

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pol.Stop(stopCtx)
	mgr.Unsubscribe(sub)
	return 0
}

// notifySystemd reports readiness and keeps the watchdog fed when the
// process runs under systemd; outside systemd both calls are no-ops.
func notifySystemd(ctx context.Context, log logx.Logger) {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("sd_notify failed", logx.Err(err))
	} else if ok {
		log.Debug("systemd notified ready")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}

func logxConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Telegram.Enabled,
			ChatID:     c.Telegram.ChatID,
			ThreadID:   c.Telegram.ThreadID,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}

func storageConfig(c config.StorageConfig) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", c.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      c.Driver,
		Path:        c.Path,
		BusyTimeout: busy,
	}, nil
}

func pollerConfig(c config.PollerConfig) (poller.Config, error) {
	interval, err := config.ParseDurationOrDefault("poller.interval", c.Interval, 30*time.Second)
	if err != nil {
		return poller.Config{}, err
	}
	return poller.Config{
		Enabled:  c.Enabled,
		Interval: interval,
		Timezone: c.Timezone,
	}, nil
}
