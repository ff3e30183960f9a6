package app

import (
	"testing"

	"quizbot/internal/domain"
)

func TestResultFeedBroadcastsAndUnsubscribes(t *testing.T) {
	feed := NewResultFeed()
	first, cancelFirst := feed.Subscribe()
	second, cancelSecond := feed.Subscribe()
	defer cancelSecond()

	feed.Publish(domain.Result{UserID: 1, Score: 3})

	if got := <-first; got.UserID != 1 {
		t.Fatalf("first subscriber got %+v", got)
	}
	if got := <-second; got.Score != 3 {
		t.Fatalf("second subscriber got %+v", got)
	}

	cancelFirst()
	cancelFirst()
	if _, ok := <-first; ok {
		t.Fatalf("expected closed channel after cancel")
	}
	feed.Publish(domain.Result{UserID: 2})
	if got := <-second; got.UserID != 2 {
		t.Fatalf("second subscriber got %+v", got)
	}
}

func TestResultFeedDropsOldestForSlowSubscriber(t *testing.T) {
	feed := NewResultFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	for i := 1; i <= 10; i++ {
		feed.Publish(domain.Result{UserID: int64(i)})
	}

	if got := <-ch; got.UserID != 3 {
		t.Fatalf("expected oldest two results dropped, got user %d first", got.UserID)
	}
	if len(ch) != 7 {
		t.Fatalf("expected 7 buffered results left, got %d", len(ch))
	}
}
