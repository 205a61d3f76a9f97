package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads, strictly decodes, and validates the config file at path.
//
// Config is read exactly once at startup; there is no watcher and no reload.
// Mode/interval decisions are made from the returned struct, never from
// ambient process state.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Parse decodes config bytes. The path is only used to pick the format
// (YAML vs JSON) and for error messages.
func Parse(path string, b []byte) (*Config, error) {
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that cannot be defaulted away.
func (c *Config) Validate() error {
	if len(c.Products) == 0 {
		return fmt.Errorf("products: at least one product is required")
	}
	for i, p := range c.Products {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("products[%d]: id is required", i)
		}
		if p.MinStock < 0 {
			return fmt.Errorf("products[%d]: min_stock must be >= 0", i)
		}
	}

	switch c.Monitor.Mode {
	case ModeSingleShot, ModeBounded, ModeUnbounded:
	case "":
		return fmt.Errorf("monitor.mode is required (single-shot, bounded, unbounded)")
	default:
		return fmt.Errorf("monitor.mode: unknown mode %q", c.Monitor.Mode)
	}

	if c.Monitor.Mode != ModeSingleShot {
		d, err := ParseDurationField("monitor.interval", c.Monitor.Interval)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("monitor.interval must be > 0 in %s mode", c.Monitor.Mode)
		}
	}
	if c.Monitor.Mode == ModeBounded {
		d, err := ParseDurationField("monitor.duration", c.Monitor.Duration)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("monitor.duration must be > 0 in bounded mode")
		}
	}
	if _, err := ParseDurationField("monitor.suppression_window", c.Monitor.SuppressionWindow); err != nil {
		return err
	}
	if _, err := ParseDurationField("api.timeout", c.API.Timeout); err != nil {
		return err
	}

	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "memory", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.CityCode) == "" {
		c.CityCode = "110"
	}
	for i := range c.Products {
		if c.Products[i].MinStock == 0 {
			c.Products[i].MinStock = 1
		}
		if strings.TrimSpace(c.Products[i].Name) == "" {
			c.Products[i].Name = c.Products[i].ID
		}
	}
	if strings.TrimSpace(c.Monitor.LinkTemplate) == "" {
		c.Monitor.LinkTemplate = "https://card.10010.com/terminal/hs?goodsId={id}"
	}
}
