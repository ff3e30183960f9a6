package app

import (
	"context"

	"quizbot/internal/domain"
)

type effectKind int

const (
	effectDelete effectKind = iota
	// effectPrompt sends text and tracks it for the next cleanup pass.
	effectPrompt
	// effectNotice sends text that is never cleaned up.
	effectNotice
	// effectQuestion replaces the live question (messageID, if set) with a new one.
	effectQuestion
	effectReport
)

// effect is an outbound side effect computed under the session lock and dispatched
// after it is released.
type effect struct {
	kind      effectKind
	messageID int
	text      string
	choices   []domain.Choice
	result    domain.Result
}

func deleteEffects(ids []int) []effect {
	effects := make([]effect, 0, len(ids))
	for _, id := range ids {
		effects = append(effects, effect{kind: effectDelete, messageID: id})
	}
	return effects
}

func (s *QuizService) dispatch(ctx context.Context, session *Session, effects []effect) {
	chatID := session.userID
	for _, e := range effects {
		switch e.kind {
		case effectDelete:
			s.deleteQuietly(ctx, chatID, e.messageID)
		case effectPrompt:
			id, err := s.messenger.SendMessage(ctx, chatID, e.text, domain.SendOptions{})
			if err != nil {
				s.log.Warn().Err(err).Int64("user_id", chatID).Msg("prompt not delivered")
				continue
			}
			session.mu.Lock()
			session.trackPending(id)
			session.mu.Unlock()
		case effectNotice:
			s.notify(ctx, chatID, e.text)
		case effectQuestion:
			if e.messageID != 0 {
				s.deleteQuietly(ctx, chatID, e.messageID)
			}
			id, err := s.messenger.SendMessageWithChoices(ctx, chatID, e.text, e.choices)
			if err != nil {
				s.log.Error().Err(err).Int64("user_id", chatID).Str("attempt_id", session.AttemptID()).Msg("question not delivered")
				s.abort(ctx, session)
				return
			}
			session.mu.Lock()
			session.setLastQuestion(id)
			session.mu.Unlock()
		case effectReport:
			s.deliverReports(ctx, e.result)
		}
	}
}

func (s *QuizService) deleteQuietly(ctx context.Context, chatID int64, messageID int) {
	if err := s.messenger.DeleteMessage(ctx, chatID, messageID); err != nil {
		s.log.Debug().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("delete failed")
	}
}
