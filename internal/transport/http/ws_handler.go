package http

import (
	"crypto/subtle"
	"net/http"

	"quizbot/internal/app"
	"quizbot/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// MonitorHandler streams finished results to the administrator over a websocket.
type MonitorHandler struct {
	feed     *app.ResultFeed
	token    string
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewMonitorHandler(feed *app.ResultFeed, token string, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		feed:  feed,
		token: token,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "monitor").Logger(),
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type resultPayload struct {
	UserID    int64  `json:"userId"`
	AttemptID string `json:"attemptId"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Group     string `json:"group"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Elapsed   string `json:"elapsed"`
	TimedOut  bool   `json:"timedOut"`
}

func newResultPayload(r domain.Result) resultPayload {
	return resultPayload{
		UserID:    r.UserID,
		AttemptID: r.AttemptID,
		LastName:  r.Identity.LastName,
		FirstName: r.Identity.FirstName,
		Group:     r.Identity.Group,
		Score:     r.Score,
		Total:     r.Total,
		Percent:   r.Percent,
		Elapsed:   domain.FormatClock(r.Elapsed),
		TimedOut:  r.TimedOut,
	}
}

// ServeWS upgrades the request and forwards every published result until the client leaves.
func (h *MonitorHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.token == "" {
		http.NotFound(w, r)
		return
	}
	if subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("token")), []byte(h.token)) != 1 {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	results, cancel := h.feed.Subscribe()
	defer cancel()

	// The monitor is write-only; reading just detects the close.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(outboundMessage[struct{}]{Type: "subscribed"}); err != nil {
		return
	}

	for {
		select {
		case result, ok := <-results:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[resultPayload]{Type: "result", Payload: newResultPayload(result)}); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		case <-clientGone:
			return
		}
	}
}
