package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gopkg.in/telebot.v3"
)

type apiCall struct {
	Method string
	Params map[string]any
}

// fakeAPI stands in for api.telegram.org and records every call.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	nextID int
	fail   map[string]bool
	url    string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *telebot.Bot) {
	t.Helper()
	api := &fakeAPI{nextID: 100, fail: map[string]bool{}}
	server := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(server.Close)
	api.url = server.URL

	bot, err := telebot.NewBot(api.settings(telebot.Settings{}))
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return api, bot
}

// settings points base at the fake server and runs handlers inline.
func (f *fakeAPI) settings(base telebot.Settings) telebot.Settings {
	base.URL = f.url
	base.Token = "test-token"
	base.Offline = true
	base.Synchronous = true
	return base
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	params := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&params)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Params: params})
	f.nextID++
	id := f.nextID
	fail := f.fail[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`))
		return
	}
	if method == "sendMessage" {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": id,
				"date":       0,
				"chat":       map[string]any{"id": 5, "type": "private"},
			},
		})
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
}

func (f *fakeAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}
