package telegram

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/telebot.v3"
)

// Conductor is the inbound side of the quiz: one call per user event.
type Conductor interface {
	Start(ctx context.Context, userID int64)
	HandleText(ctx context.Context, userID int64, messageID int, text string)
	HandleButton(ctx context.Context, userID int64, messageID int, data string)
}

// Handlers translates Telegram updates into Conductor calls.
type Handlers struct {
	ctx       context.Context
	conductor Conductor
	log       zerolog.Logger
}

func NewHandlers(ctx context.Context, conductor Conductor, log zerolog.Logger) *Handlers {
	return &Handlers{
		ctx:       ctx,
		conductor: conductor,
		log:       log.With().Str("component", "telegram_handlers").Logger(),
	}
}

// Register binds the handlers to the bot's routes.
func (h *Handlers) Register(b *telebot.Bot) {
	b.Handle("/start", h.onStart)
	b.Handle(telebot.OnText, h.onText)
	b.Handle(telebot.OnCallback, h.onCallback)
}

func (h *Handlers) onStart(c telebot.Context) error {
	if c.Sender() == nil {
		return nil
	}
	h.conductor.Start(h.ctx, c.Sender().ID)
	return nil
}

func (h *Handlers) onText(c telebot.Context) error {
	msg := c.Message()
	if c.Sender() == nil || msg == nil {
		return nil
	}
	// unknown commands are not answers
	if strings.HasPrefix(msg.Text, "/") {
		return nil
	}
	h.conductor.HandleText(h.ctx, c.Sender().ID, msg.ID, msg.Text)
	return nil
}

func (h *Handlers) onCallback(c telebot.Context) error {
	cb := c.Callback()
	if cb == nil || c.Sender() == nil {
		return nil
	}
	if err := c.Respond(); err != nil {
		h.log.Debug().Err(err).Msg("callback not acknowledged")
	}
	messageID := 0
	if cb.Message != nil {
		messageID = cb.Message.ID
	}
	h.conductor.HandleButton(h.ctx, c.Sender().ID, messageID, cb.Data)
	return nil
}
