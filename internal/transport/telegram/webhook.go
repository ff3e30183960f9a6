package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"gopkg.in/telebot.v3"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler feeds updates posted by Telegram straight into the bot's handlers. It does
// not depend on the poller having started, so the HTTP listener may come up first.
func WebhookHandler(bot *telebot.Bot, secretToken string, log zerolog.Logger) http.Handler {
	log = log.With().Str("component", "telegram_webhook").Logger()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secretToken != "" {
			got := r.Header.Get(secretTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secretToken)) != 1 {
				http.Error(w, "invalid secret token", http.StatusUnauthorized)
				return
			}
		}

		var update telebot.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.Debug().Err(err).Msg("malformed update")
			http.Error(w, "malformed update", http.StatusBadRequest)
			return
		}
		bot.ProcessUpdate(update)
	})
}
