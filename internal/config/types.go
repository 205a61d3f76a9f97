package config

// RunMode selects how the monitor loop terminates.
type RunMode string

const (
	// ModeSingleShot runs one poll cycle and exits.
	ModeSingleShot RunMode = "single-shot"
	// ModeBounded polls at a fixed interval until the configured duration elapses.
	ModeBounded RunMode = "bounded"
	// ModeUnbounded polls at a fixed interval until interrupted.
	ModeUnbounded RunMode = "unbounded"
)

type Config struct {
	Products []ProductConfig `json:"products"`
	CityCode string          `json:"city_code,omitempty"`

	API     APIConfig     `json:"api,omitempty"`
	Monitor MonitorConfig `json:"monitor"`

	Channels ChannelsConfig `json:"channels,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}

// ProductConfig is one watched product. MinStock is the quantity that counts
// as "in stock"; it defaults to 1. Some listings need a higher bar (e.g. 10)
// so single-unit test listings don't trip alerts.
type ProductConfig struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MinStock int    `json:"min_stock,omitempty"`
}

type APIConfig struct {
	// BaseURL overrides the stock query endpoint (tests point this at a local server).
	BaseURL string `json:"base_url,omitempty"`
	// Timeout is a Go duration string (e.g. "10s"). Default 10s.
	Timeout string `json:"timeout,omitempty"`
}

// MonitorConfig controls the run loop.
//
// All durations are Go duration strings (e.g. "30s", "15m", "2h").
type MonitorConfig struct {
	Mode     RunMode `json:"mode"`
	Interval string  `json:"interval,omitempty"`
	// Duration bounds the loop in bounded mode.
	Duration string `json:"duration,omitempty"`
	// SuppressionWindow is the minimum gap between repeat in-stock alerts for
	// the same product/variant. Defaults: 6h (single-shot/unbounded), 5m (bounded).
	SuppressionWindow string `json:"suppression_window,omitempty"`
	// LinkTemplate builds the purchase link; {id} is replaced with the product id.
	LinkTemplate string `json:"link_template,omitempty"`
}

// ChannelsConfig configures delivery backends. A section left empty (no
// URL/credentials) disables that channel without failing startup.
type ChannelsConfig struct {
	Webhook  WebhookConfig  `json:"webhook,omitempty"`
	Email    EmailConfig    `json:"email,omitempty"`
	Push     PushConfig     `json:"push,omitempty"`
	Telegram TelegramConfig `json:"telegram,omitempty"`
}

type WebhookConfig struct {
	URL string `json:"url,omitempty"`
	// Secret enables HMAC-SHA256 request signing when set.
	Secret string `json:"secret,omitempty"`
}

type EmailConfig struct {
	SMTPServer string `json:"smtp_server,omitempty"`
	SMTPPort   int    `json:"smtp_port,omitempty"`
	Sender     string `json:"sender,omitempty"`
	Password   string `json:"password,omitempty"`
	Receiver   string `json:"receiver,omitempty"`
}

type PushConfig struct {
	URL      string   `json:"url,omitempty"`
	AppToken string   `json:"app_token,omitempty"`
	UIDs     []string `json:"uids,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Driver values:
//   - "memory": in-process only (default for bounded/unbounded loops)
//   - "file":   JSON snapshots next to Path (default for single-shot)
//   - "sqlite": SQLite database file (requires the sqlite build tag)
//
// Example:
//
//	"storage": { "driver": "file", "path": "./stockmon_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
