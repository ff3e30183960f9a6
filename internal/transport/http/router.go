package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the health probe, the Telegram webhook (nil in polling mode) and the
// result monitor.
func NewRouter(webhookPath string, webhook http.Handler, monitor *MonitorHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if webhook != nil {
		r.Handle(webhookPath, webhook).Methods(http.MethodPost)
	}
	if monitor != nil {
		r.HandleFunc("/ws/results", monitor.ServeWS).Methods(http.MethodGet)
	}
	return r
}
