package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quizbot/internal/domain"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// SessionRepository abstracts where per-user sessions live (in-memory, Redis-aware, etc).
type SessionRepository interface {
	// Put stores session under its user id, replacing any previous attempt.
	Put(session *Session)
	Get(userID int64) (*Session, bool)
	// Delete removes the entry only while it still points at session, so a finished
	// attempt cannot evict a newer one started in the meantime.
	Delete(userID int64, session *Session)
}

// Messenger carries outbound effects to the chat network.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts domain.SendOptions) (int, error)
	SendMessageWithChoices(ctx context.Context, chatID int64, text string, choices []domain.Choice) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// ResultPublisher receives every finished result, e.g. the admin monitor feed.
type ResultPublisher interface {
	Publish(result domain.Result)
}

// Settings are the fixed, process-wide knobs of the conductor.
type Settings struct {
	AdminChatID int64
	// Greeting is sent on /start before the identity prompts; empty disables it.
	Greeting string
}

type Option func(*QuizService)

// WithClock replaces time.Now, for deterministic timing in tests.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func WithResultPublisher(p ResultPublisher) Option {
	return func(s *QuizService) { s.results = p }
}

// QuizService drives sessions through their states in response to inbound events.
type QuizService struct {
	sessions  SessionRepository
	bank      *Bank
	messenger Messenger
	settings  Settings
	results   ResultPublisher
	now       func() time.Time
	log       zerolog.Logger
}

func NewQuizService(store SessionRepository, bank *Bank, messenger Messenger, settings Settings, log zerolog.Logger, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  store,
		bank:      bank,
		messenger: messenger,
		settings:  settings,
		now:       time.Now,
		log:       log.With().Str("component", "quiz_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a fresh session for userID, discarding any attempt in progress.
func (s *QuizService) Start(ctx context.Context, userID int64) {
	defer s.recoverBoundary(ctx, userID)

	session := s.bank.Materialize(userID, s.now())
	s.sessions.Put(session)
	s.log.Info().Int64("user_id", userID).Str("attempt_id", session.AttemptID()).Msg("session started")

	effects := make([]effect, 0, 2)
	if s.settings.Greeting != "" {
		effects = append(effects, effect{kind: effectNotice, text: s.settings.Greeting})
	}
	effects = append(effects, effect{kind: effectPrompt, text: msgWelcome})
	s.dispatch(ctx, session, effects)
}

// HandleText processes a plain text message: identity input, or a free-text answer while testing.
func (s *QuizService) HandleText(ctx context.Context, userID int64, messageID int, text string) {
	defer s.recoverBoundary(ctx, userID)

	session, ok := s.sessions.Get(userID)
	if !ok {
		s.notify(ctx, userID, msgStartFirst)
		return
	}
	effects := s.applyText(ctx, session, messageID, strings.TrimSpace(text), s.now())
	s.dispatch(ctx, session, effects)
}

// HandleButton processes an inline keyboard press carrying an answer token.
func (s *QuizService) HandleButton(ctx context.Context, userID int64, messageID int, data string) {
	defer s.recoverBoundary(ctx, userID)

	session, ok := s.sessions.Get(userID)
	if !ok {
		s.notify(ctx, userID, msgSessionExpired)
		return
	}
	questionIdx, optionIdx, err := domain.DecodeAnswerToken(data)
	if err != nil {
		s.log.Debug().Err(err).Int64("user_id", userID).Msg("ignoring button press")
		return
	}
	effects := s.applyButton(ctx, session, messageID, questionIdx, optionIdx, s.now())
	s.dispatch(ctx, session, effects)
}

func (s *QuizService) applyText(ctx context.Context, session *Session, messageID int, text string, now time.Time) []effect {
	session.mu.Lock()
	defer session.mu.Unlock()

	session.trackPending(messageID)

	state := session.state()
	switch state {
	case domain.StateAwaitingLastName, domain.StateAwaitingFirstName, domain.StateAwaitingGroup:
		if text == "" {
			return []effect{{kind: effectPrompt, text: identityPrompt(state)}}
		}
		return s.collectIdentity(ctx, session, state, text, now)
	case domain.StateTesting:
		if session.expired(now, s.bank.TimeLimit()) {
			return s.finish(ctx, session, now, true)
		}
		correct := strings.EqualFold(text, session.current().CorrectOption())
		return s.advance(ctx, session, correct, now)
	default:
		return nil
	}
}

func (s *QuizService) collectIdentity(ctx context.Context, session *Session, state domain.State, text string, now time.Time) []effect {
	var event string
	switch state {
	case domain.StateAwaitingLastName:
		session.identity.LastName = text
		event = eventLastName
	case domain.StateAwaitingFirstName:
		session.identity.FirstName = text
		event = eventFirstName
	default:
		session.identity.Group = text
		event = eventGroup
	}
	if err := session.fire(ctx, event); err != nil {
		s.log.Error().Err(err).Int64("user_id", session.userID).Str("event", event).Msg("identity transition rejected")
		return nil
	}

	effects := deleteEffects(session.drainPending())
	if session.state() != domain.StateTesting {
		return append(effects, effect{kind: effectPrompt, text: identityPrompt(session.state())})
	}

	session.testStartedAt = now
	s.log.Info().
		Int64("user_id", session.userID).
		Str("attempt_id", session.attemptID.String()).
		Str("group", session.identity.Group).
		Msg("test started")
	return append(effects, s.questionEffect(session, now))
}

func (s *QuizService) applyButton(ctx context.Context, session *Session, messageID, questionIdx, optionIdx int, now time.Time) []effect {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state() != domain.StateTesting {
		return nil
	}
	if session.expired(now, s.bank.TimeLimit()) {
		return s.finish(ctx, session, now, true)
	}
	if questionIdx != session.currentIndex {
		// stale or duplicate press
		return nil
	}

	effects := []effect{{kind: effectDelete, messageID: messageID}}
	if session.hasLastQuestion && session.lastQuestionID == messageID {
		session.takeLastQuestion()
	}
	correct := optionIdx == session.current().Correct
	return append(effects, s.advance(ctx, session, correct, now)...)
}

// advance records the answer to the current question and moves on. Callers hold session.mu.
func (s *QuizService) advance(ctx context.Context, session *Session, correct bool, now time.Time) []effect {
	if correct {
		session.score++
	}
	session.currentIndex++

	effects := deleteEffects(session.drainPending())
	if session.currentIndex >= len(session.questions) {
		return append(effects, s.finish(ctx, session, now, false)...)
	}
	return append(effects, s.questionEffect(session, now))
}

// finish moves the session to StateFinished and removes it from the store. Callers hold session.mu.
func (s *QuizService) finish(ctx context.Context, session *Session, now time.Time, timedOut bool) []effect {
	if err := session.fire(ctx, eventFinish); err != nil {
		s.log.Error().Err(err).Int64("user_id", session.userID).Msg("finish transition rejected")
	}
	result := session.result(now, timedOut)

	effects := deleteEffects(session.drainPending())
	if id, ok := session.takeLastQuestion(); ok {
		effects = append(effects, effect{kind: effectDelete, messageID: id})
	}

	s.sessions.Delete(session.userID, session)
	s.log.Info().
		Int64("user_id", session.userID).
		Str("attempt_id", result.AttemptID).
		Int("score", result.Score).
		Int("total", result.Total).
		Bool("timed_out", timedOut).
		Dur("session_age", now.Sub(session.createdAt)).
		Msg("test finished")

	return append(effects, effect{kind: effectReport, result: result})
}

func (s *QuizService) questionEffect(session *Session, now time.Time) effect {
	q := session.current()
	idx := session.currentIndex
	choices := lo.Map(q.Options, func(option string, i int) domain.Choice {
		return domain.Choice{Label: option, Token: domain.EncodeAnswerToken(idx, i)}
	})
	e := effect{
		kind:    effectQuestion,
		text:    questionText(q, idx, len(session.questions), session.timeLeft(now, s.bank.TimeLimit())),
		choices: choices,
	}
	if id, ok := session.takeLastQuestion(); ok {
		e.messageID = id
	}
	return e
}

// deliverReports sends the user and admin reports independently; a failure of one never
// skips the other.
func (s *QuizService) deliverReports(ctx context.Context, result domain.Result) {
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.messenger.SendMessage(ctx, result.UserID, userReport(result), domain.SendOptions{Preformatted: true})
		if err != nil {
			s.log.Error().Err(err).Int64("user_id", result.UserID).Msg("user report not delivered")
			return fmt.Errorf("user report: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		_, err := s.messenger.SendMessage(ctx, s.settings.AdminChatID, adminReport(result), domain.SendOptions{})
		if err != nil {
			s.log.Error().Err(err).Int64("admin_chat_id", s.settings.AdminChatID).Msg("admin report not delivered")
			return fmt.Errorf("admin report: %w", err)
		}
		return nil
	})
	_ = g.Wait()

	if s.results != nil {
		s.results.Publish(result)
	}
}

// abort drops the session after a failure that left it without a live question.
func (s *QuizService) abort(ctx context.Context, session *Session) {
	s.sessions.Delete(session.userID, session)
	s.notify(ctx, session.userID, msgRestart)
}

func (s *QuizService) notify(ctx context.Context, chatID int64, text string) {
	if _, err := s.messenger.SendMessage(ctx, chatID, text, domain.SendOptions{}); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Msg("notice not delivered")
	}
}

func (s *QuizService) recoverBoundary(ctx context.Context, userID int64) {
	r := recover()
	if r == nil {
		return
	}
	s.log.Error().Interface("panic", r).Int64("user_id", userID).Msg("recovered from handler panic")
	if session, ok := s.sessions.Get(userID); ok {
		s.sessions.Delete(userID, session)
	}
	s.notify(ctx, userID, msgRestart)
}
