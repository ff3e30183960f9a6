package telegram

import (
	"context"
	"strconv"
	"strings"

	"quizbot/internal/domain"
	"gopkg.in/telebot.v3"
)

// botAPI is the slice of *telebot.Bot the messenger needs.
type botAPI interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
}

// Messenger implements app.Messenger on top of the Telegram Bot API.
type Messenger struct {
	bot botAPI
}

func NewMessenger(bot botAPI) *Messenger {
	return &Messenger{bot: bot}
}

func (m *Messenger) SendMessage(ctx context.Context, chatID int64, text string, opts domain.SendOptions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sendOpts := &telebot.SendOptions{}
	if opts.Preformatted {
		text = preformatted(text)
		sendOpts.ParseMode = telebot.ModeMarkdownV2
	}
	msg, err := m.bot.Send(&telebot.Chat{ID: chatID}, text, sendOpts)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// SendMessageWithChoices sends a preformatted question with one inline button per row.
func (m *Messenger) SendMessageWithChoices(ctx context.Context, chatID int64, text string, choices []domain.Choice) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	keyboard := make([][]telebot.InlineButton, 0, len(choices))
	for _, choice := range choices {
		keyboard = append(keyboard, []telebot.InlineButton{{Text: choice.Label, Data: choice.Token}})
	}
	msg, err := m.bot.Send(&telebot.Chat{ID: chatID}, preformatted(text), &telebot.SendOptions{
		ParseMode:   telebot.ModeMarkdownV2,
		ReplyMarkup: &telebot.ReplyMarkup{InlineKeyboard: keyboard},
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (m *Messenger) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.bot.Delete(&telebot.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	})
}

var codeEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`")

// preformatted wraps text in a MarkdownV2 code block.
func preformatted(text string) string {
	return "```\n" + codeEscaper.Replace(text) + "\n```"
}
