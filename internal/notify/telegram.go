package notify

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"
)

// TelegramConfig configures the optional Telegram channel.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// Telegram delivers through a Telegram bot. Send-only: the bot never polls
// for updates.
type Telegram struct {
	bot    *tele.Bot
	chatID int64
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: bot, chatID: cfg.ChatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, title, body string) error {
	_ = ctx // telebot manages its own request timeouts
	_, err := t.bot.Send(tele.ChatID(t.chatID), title+"\n\n"+body, &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
