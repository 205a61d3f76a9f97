package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockmon/internal/config"
	"stockmon/internal/monitor"
	"stockmon/internal/notify"
	"stockmon/internal/stockapi"
	"stockmon/internal/storage"
	logx "stockmon/pkg/logx"
)

func main() {
	var (
		cfgPath string
		mode    string
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.StringVar(&mode, "mode", "", "override run mode: single-shot, bounded, unbounded")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if mode != "" {
		cfg.Monitor.Mode = config.RunMode(mode)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
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

	if err := run(ctx, cfg, log); err != nil {
		log.Error("exiting on error", logx.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logx.Logger) error {
	settings, err := monitor.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	apiTimeout, err := config.ParseDurationField("api.timeout", cfg.API.Timeout)
	if err != nil {
		return err
	}
	client := stockapi.New(stockapi.Config{
		BaseURL:  cfg.API.BaseURL,
		CityCode: cfg.CityCode,
		Timeout:  apiTimeout,
	}, log.With(logx.String("svc", "stockapi")))

	channels := monitor.BuildChannels(cfg.Channels, log)
	if len(channels) == 0 {
		log.Warn("no notification channels configured; transitions will only be logged")
	}
	dispatcher := notify.NewDispatcher(log.With(logx.String("svc", "notify")), channels...)

	m := monitor.New(settings, client, store, dispatcher, log.With(logx.String("svc", "monitor")))

	log.Info("monitor starting",
		logx.String("mode", string(settings.Mode)),
		logx.Int("products", len(settings.Products)),
		logx.Int("channels", len(channels)))
	return m.Run(ctx)
}

func openStore(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	sc := storage.Config{}
	switch {
	case cfg.Storage != nil:
		sc.Driver = cfg.Storage.Driver
		sc.Path = cfg.Storage.Path
		if cfg.Storage.BusyTimeout != "" {
			d, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
			if err != nil {
				return nil, err
			}
			sc.BusyTimeout = d
		}
	case cfg.Monitor.Mode == config.ModeSingleShot:
		// Single-shot runs are one process per check, so state must
		// survive on disk. The loop modes keep it in the process.
		sc = storage.Config{Driver: "file", Path: "./stockmon_store"}
	}
	return storage.Open(sc, log.With(logx.String("svc", "storage")))
}
