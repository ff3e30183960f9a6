package telegram

import (
	"fmt"
	"time"

	"quizbot/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/telebot.v3"
)

// NewBot builds the bot with a webhook poller when a public URL is configured and a long
// poller otherwise. Updates for the returned webhook, if any, are served by WebhookHandler.
func NewBot(cfg config.Config, log zerolog.Logger) (*telebot.Bot, *telebot.Webhook, error) {
	settings, webhook := botSettings(cfg, log)
	bot, err := telebot.NewBot(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return bot, webhook, nil
}

func botSettings(cfg config.Config, log zerolog.Logger) (telebot.Settings, *telebot.Webhook) {
	settings := telebot.Settings{
		Token: cfg.Telegram.Token,
		OnError: func(err error, c telebot.Context) {
			ev := log.Error().Err(err)
			if c != nil && c.Sender() != nil {
				ev = ev.Int64("user_id", c.Sender().ID)
			}
			ev.Msg("telegram handler error")
		},
	}

	url := cfg.WebhookURL()
	if url == "" {
		settings.Poller = &telebot.LongPoller{Timeout: config.DurationOr(cfg.Telegram.PollTimeout, 10*time.Second)}
		return settings, nil
	}
	webhook := &telebot.Webhook{
		Endpoint:    &telebot.WebhookEndpoint{PublicURL: url},
		SecretToken: cfg.Telegram.SecretToken,
		DropUpdates: true,
	}
	settings.Poller = webhook
	return settings, webhook
}

// RegisterWebhook points Telegram at the webhook up front so a bad URL or token fails
// startup instead of the poller. The poller registers again on Start; by then pending
// updates belong to this process and must be kept.
func RegisterWebhook(bot *telebot.Bot, webhook *telebot.Webhook) error {
	if err := bot.SetWebhook(webhook); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	webhook.DropUpdates = false
	return nil
}
