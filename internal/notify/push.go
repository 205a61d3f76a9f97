package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultPushURL = "https://wxpusher.zjiecode.com/api/send/message"

// PushConfig configures the push-notification channel.
type PushConfig struct {
	URL      string
	AppToken string
	UIDs     []string
}

// Push delivers through a WxPusher-style push API.
type Push struct {
	cfg  PushConfig
	http *http.Client
}

func NewPush(cfg PushConfig) *Push {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaultPushURL
	}
	return &Push{cfg: cfg, http: &http.Client{Timeout: 10 * time.Second}}
}

func (p *Push) Name() string { return "push" }

func (p *Push) Send(ctx context.Context, title, body string) error {
	payload := map[string]any{
		"appToken":    p.cfg.AppToken,
		"content":     body,
		"summary":     title,
		"contentType": 1,
		"uids":        p.cfg.UIDs,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("push post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push status %d", resp.StatusCode)
	}

	var result struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("push rejected: %s", result.Msg)
	}
	return nil
}
