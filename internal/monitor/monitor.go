package monitor

import (
	"context"
	"strings"
	"time"

	"stockmon/internal/config"
	"stockmon/internal/detect"
	"stockmon/internal/notify"
	"stockmon/internal/stockapi"
	"stockmon/internal/storage"
	logx "stockmon/pkg/logx"
)

// Fetcher is the slice of the stock API client the monitor needs.
type Fetcher interface {
	Fetch(ctx context.Context, productID string) (*stockapi.Reading, error)
}

// Settings is the run configuration resolved from config.Config, with all
// durations parsed and defaults applied.
type Settings struct {
	Products []detect.ProductSpec

	Mode     config.RunMode
	Interval time.Duration
	Duration time.Duration

	SuppressionWindow time.Duration
	LinkTemplate      string
}

// Monitor owns one fetch/detect/notify pipeline. State lives in the passed
// store, never in package globals, so tests can run several independent
// monitors side by side.
type Monitor struct {
	settings   Settings
	fetcher    Fetcher
	store      storage.Store
	detector   *detect.Detector
	dispatcher *notify.Dispatcher
	log        logx.Logger
}

func New(settings Settings, fetcher Fetcher, store storage.Store, dispatcher *notify.Dispatcher, log logx.Logger) *Monitor {
	if log.IsZero() {
		log = logx.Nop()
	}
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(log)
	}
	return &Monitor{
		settings:   settings,
		fetcher:    fetcher,
		store:      store,
		detector:   detect.New(store, log),
		dispatcher: dispatcher,
		log:        log,
	}
}

// SettingsFromConfig resolves durations and mode-dependent defaults.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	s := Settings{
		Mode:         cfg.Monitor.Mode,
		LinkTemplate: cfg.Monitor.LinkTemplate,
	}
	for _, p := range cfg.Products {
		s.Products = append(s.Products, detect.ProductSpec{
			ID:       p.ID,
			Name:     p.Name,
			MinStock: p.MinStock,
		})
	}

	var err error
	if s.Interval, err = config.ParseDurationField("monitor.interval", cfg.Monitor.Interval); err != nil {
		return Settings{}, err
	}
	if s.Duration, err = config.ParseDurationField("monitor.duration", cfg.Monitor.Duration); err != nil {
		return Settings{}, err
	}

	// Rapid bounded runs cool down faster than the slow modes.
	defWindow := 6 * time.Hour
	if cfg.Monitor.Mode == config.ModeBounded {
		defWindow = 5 * time.Minute
	}
	if s.SuppressionWindow, err = config.ParseDurationOrDefault(
		"monitor.suppression_window", cfg.Monitor.SuppressionWindow, defWindow); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// BuildChannels assembles the delivery backends that have credentials.
// A channel without credentials is skipped, never an error; a channel that
// fails to initialize (telegram) is logged and skipped.
func BuildChannels(cfg config.ChannelsConfig, log logx.Logger) []notify.Channel {
	var out []notify.Channel

	if strings.TrimSpace(cfg.Webhook.URL) != "" {
		out = append(out, notify.NewWebhook(notify.WebhookConfig{
			URL:    cfg.Webhook.URL,
			Secret: cfg.Webhook.Secret,
		}))
	}

	e := cfg.Email
	if e.SMTPServer != "" && e.Sender != "" && e.Password != "" && e.Receiver != "" {
		port := e.SMTPPort
		if port == 0 {
			port = 465
		}
		out = append(out, notify.NewEmail(notify.EmailConfig{
			SMTPServer: e.SMTPServer,
			SMTPPort:   port,
			Sender:     e.Sender,
			Password:   e.Password,
			Receiver:   e.Receiver,
		}))
	} else if e.SMTPServer != "" || e.Sender != "" {
		log.Warn("email channel incomplete; skipping")
	}

	if cfg.Push.AppToken != "" && len(cfg.Push.UIDs) > 0 {
		out = append(out, notify.NewPush(notify.PushConfig{
			URL:      cfg.Push.URL,
			AppToken: cfg.Push.AppToken,
			UIDs:     cfg.Push.UIDs,
		}))
	}

	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		})
		if err != nil {
			log.Warn("telegram channel unavailable", logx.Err(err))
		} else {
			out = append(out, tg)
		}
	}

	return out
}
