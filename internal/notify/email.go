package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	Sender     string
	Password   string
	Receiver   string
}

// Email submits a plain-text message over SMTP. Port 465 uses implicit TLS;
// any other port dials plaintext and upgrades with STARTTLS when the server
// offers it.
type Email struct {
	cfg EmailConfig
}

func NewEmail(cfg EmailConfig) *Email { return &Email{cfg: cfg} }

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, title, body string) error {
	host := e.cfg.SMTPServer
	addr := fmt.Sprintf("%s:%d", host, e.cfg.SMTPPort)

	var (
		conn net.Conn
		err  error
	)
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if e.cfg.SMTPPort == 465 {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if e.cfg.SMTPPort != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	auth := smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, host)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := c.Mail(e.cfg.Sender); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := c.Rcpt(e.cfg.Receiver); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(e.message(title, body)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return c.Quit()
}

func (e *Email) message(title, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: Stock Monitor <%s>\r\n", e.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", e.cfg.Receiver)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", title))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
