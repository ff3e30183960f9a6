package redis

import (
	"net"
	"testing"
	"time"

	"quizbot/internal/app"
	"quizbot/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute, zerolog.Nop())
	bank := app.NewBank(sampleBank())

	session := bank.Materialize(7, time.Now())
	store.Put(session)
	if !mr.Exists("quizbot:session:7") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("quizbot:session:7"); got != session.AttemptID() {
		t.Fatalf("expected attempt id %q, got %q", session.AttemptID(), got)
	}
	if ttl := mr.TTL("quizbot:session:7"); ttl != time.Minute {
		t.Fatalf("expected ttl of 1m, got %v", ttl)
	}

	store.Delete(7, session)
	if mr.Exists("quizbot:session:7") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get(7); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreKeepsKeyOfNewerAttempt(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute, zerolog.Nop())
	bank := app.NewBank(sampleBank())

	old := bank.Materialize(7, time.Now())
	store.Put(old)
	restarted := bank.Materialize(7, time.Now())
	store.Put(restarted)

	store.Delete(7, old)
	if !mr.Exists("quizbot:session:7") {
		t.Fatalf("expected key of the restarted attempt to survive")
	}
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		Questions: []domain.Question{
			{Prompt: "What is 2 + 2?", Options: []string{"3", "4"}, Correct: 1},
		},
		TimeLimitMinutes: 10,
	}
}

func TestSessionStoreDeleteSparesMarkerOfNewerAttempt(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute, zerolog.Nop())
	bank := app.NewBank(sampleBank())

	old := bank.Materialize(7, time.Now())
	store.Put(old)
	// the newer attempt's marker lands while the old attempt is still mapped
	restarted := bank.Materialize(7, time.Now())
	if err := mr.Set(Key(7), restarted.AttemptID()); err != nil {
		t.Fatalf("set marker: %v", err)
	}

	store.Delete(7, old)
	if got, _ := mr.Get(Key(7)); got != restarted.AttemptID() {
		t.Fatalf("expected newer attempt marker to survive, got %q", got)
	}
}

func TestSessionStoreLookupsNotBlockedByRedis(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	// accepts connections and never answers
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	client := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), MaxRetries: -1})
	defer client.Close()
	store := NewSessionStore(client, time.Minute, zerolog.Nop())
	store.opTimeout = 300 * time.Millisecond
	bank := app.NewBank(sampleBank())

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Put(bank.Materialize(1, time.Now()))
	}()
	time.Sleep(50 * time.Millisecond)

	started := time.Now()
	if _, ok := store.Get(2); ok {
		t.Fatalf("unexpected session for user 2")
	}
	if _, ok := store.Get(1); !ok {
		t.Fatalf("expected session for user 1 before redis answered")
	}
	if elapsed := time.Since(started); elapsed > 100*time.Millisecond {
		t.Fatalf("store lookups waited %v on redis", elapsed)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("put did not give up on an unresponsive redis")
	}
}
