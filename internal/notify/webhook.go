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

// WebhookConfig configures the signed-webhook channel.
type WebhookConfig struct {
	URL string
	// Secret enables request signing. Without it the request is sent unsigned.
	Secret string
}

// Webhook posts a markdown message to a chat-webhook endpoint. When a
// shared secret is configured, each request carries a millisecond timestamp
// and an HMAC-SHA256 signature as query parameters.
type Webhook struct {
	cfg  WebhookConfig
	http *http.Client
	// now is swappable for deterministic signature tests.
	now func() time.Time
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	return &Webhook{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
		now:  time.Now,
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, title, body string) error {
	payload := map[string]any{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  body,
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	reqURL := w.cfg.URL
	if strings.TrimSpace(w.cfg.Secret) != "" {
		reqURL = signedURL(reqURL, w.cfg.Secret, w.now().UnixMilli())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	var result struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("webhook rejected: %d %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}
