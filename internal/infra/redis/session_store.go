package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"quizbot/internal/app"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultOpTimeout = 2 * time.Second

// deleteIfAttempt removes the marker only while it still names the finished attempt.
var deleteIfAttempt = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in a local map; the state machine is process-local.
//   - Redis holds one liveness key per active attempt (value: attempt id) so operators
//     can see who is mid-test, and so a restarted process can tell stale keys by TTL.
//   - Redis calls run after the map lock is released and are bounded by opTimeout.
type SessionStore struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
	log       zerolog.Logger

	mu       sync.RWMutex
	sessions map[int64]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		client:    client,
		ttl:       ttl,
		opTimeout: defaultOpTimeout,
		log:       log.With().Str("component", "redis_session_store").Logger(),
		sessions:  make(map[int64]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.UserID()] = session
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, Key(session.UserID()), session.AttemptID(), s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Int64("user_id", session.UserID()).Msg("liveness marker not set")
	}
}

func (s *SessionStore) Get(userID int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *SessionStore) Delete(userID int64, session *app.Session) {
	s.mu.Lock()
	current, ok := s.sessions[userID]
	if !ok || current != session {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, userID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	err := deleteIfAttempt.Run(ctx, s.client, []string{Key(userID)}, session.AttemptID()).Err()
	if err != nil && err != redis.Nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("liveness marker not cleared")
	}
}

// Key is the liveness key of userID's active attempt.
func Key(userID int64) string {
	return "quizbot:session:" + strconv.FormatInt(userID, 10)
}
