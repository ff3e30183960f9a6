package app

import (
	"context"
	"sync"
	"time"

	"quizbot/internal/domain"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
)

const (
	eventLastName  = "last_name"
	eventFirstName = "first_name"
	eventGroup     = "group"
	eventFinish    = "finish"
)

// Session is one user's test attempt. All fields are guarded by mu; the QuizService holds
// the lock for the duration of a transition.
type Session struct {
	userID    int64
	attemptID uuid.UUID
	createdAt time.Time

	mu        sync.Mutex
	machine   *fsm.FSM
	identity  domain.Identity
	questions []domain.Question

	currentIndex  int
	score         int
	testStartedAt time.Time

	pendingMessageIDs []int

	lastQuestionID  int
	hasLastQuestion bool
}

func newSession(userID int64, questions []domain.Question, now time.Time) *Session {
	return &Session{
		userID:    userID,
		attemptID: uuid.New(),
		createdAt: now,
		machine:   newMachine(),
		questions: questions,
	}
}

func newMachine() *fsm.FSM {
	return fsm.NewFSM(
		string(domain.StateAwaitingLastName),
		fsm.Events{
			{Name: eventLastName, Src: []string{string(domain.StateAwaitingLastName)}, Dst: string(domain.StateAwaitingFirstName)},
			{Name: eventFirstName, Src: []string{string(domain.StateAwaitingFirstName)}, Dst: string(domain.StateAwaitingGroup)},
			{Name: eventGroup, Src: []string{string(domain.StateAwaitingGroup)}, Dst: string(domain.StateTesting)},
			{Name: eventFinish, Src: []string{string(domain.StateTesting)}, Dst: string(domain.StateFinished)},
		},
		fsm.Callbacks{},
	)
}

// UserID is the Telegram user (and private chat) the session belongs to.
func (s *Session) UserID() int64 {
	return s.userID
}

// AttemptID distinguishes restarts of the same user in logs and reports.
func (s *Session) AttemptID() string {
	return s.attemptID.String()
}

// Snapshot returns a consistent copy of the session's progress.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSnapshot{
		UserID:       s.userID,
		AttemptID:    s.attemptID.String(),
		State:        s.state(),
		Identity:     s.identity,
		CurrentIndex: s.currentIndex,
		Score:        s.score,
		Total:        len(s.questions),
	}
}

func (s *Session) state() domain.State {
	return domain.State(s.machine.Current())
}

func (s *Session) fire(ctx context.Context, event string) error {
	return s.machine.Event(ctx, event)
}

func (s *Session) current() domain.Question {
	return s.questions[s.currentIndex]
}

func (s *Session) expired(now time.Time, limit time.Duration) bool {
	return !s.testStartedAt.IsZero() && now.Sub(s.testStartedAt) >= limit
}

func (s *Session) timeLeft(now time.Time, limit time.Duration) time.Duration {
	return s.testStartedAt.Add(limit).Sub(now)
}

func (s *Session) trackPending(messageID int) {
	if messageID != 0 {
		s.pendingMessageIDs = append(s.pendingMessageIDs, messageID)
	}
}

func (s *Session) drainPending() []int {
	ids := s.pendingMessageIDs
	s.pendingMessageIDs = nil
	return ids
}

func (s *Session) takeLastQuestion() (int, bool) {
	id, ok := s.lastQuestionID, s.hasLastQuestion
	s.lastQuestionID, s.hasLastQuestion = 0, false
	return id, ok
}

func (s *Session) setLastQuestion(messageID int) {
	s.lastQuestionID, s.hasLastQuestion = messageID, true
}

func (s *Session) result(now time.Time, timedOut bool) domain.Result {
	total := len(s.questions)
	return domain.Result{
		UserID:    s.userID,
		AttemptID: s.attemptID.String(),
		Identity:  s.identity,
		Score:     s.score,
		Total:     total,
		Percent:   domain.ScorePercent(s.score, total),
		Elapsed:   now.Sub(s.testStartedAt),
		TimedOut:  timedOut,
		At:        now,
	}
}
