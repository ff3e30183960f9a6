package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizbot/internal/domain"

	"github.com/samber/lo"
)

// Bank materializes private, optionally shuffled copies of a question bank.
type Bank struct {
	bank domain.QuestionBank

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBank(bank domain.QuestionBank) *Bank {
	return NewBankWithSource(bank, rand.NewSource(time.Now().UnixNano()))
}

// NewBankWithSource is used by tests that need a reproducible shuffle.
func NewBankWithSource(bank domain.QuestionBank, src rand.Source) *Bank {
	return &Bank{
		bank: bank,
		rnd:  rand.New(src),
	}
}

// TimeLimit is the wall-clock budget of one test attempt.
func (b *Bank) TimeLimit() time.Duration {
	return b.bank.TimeLimit()
}

// Total is the number of questions every session gets.
func (b *Bank) Total() int {
	return len(b.bank.Questions)
}

// Materialize builds a fresh session in StateAwaitingLastName, created at now. It is used
// both for the first /start and for every restart.
func (b *Bank) Materialize(userID int64, now time.Time) *Session {
	return newSession(userID, b.materializeQuestions(), now)
}

func (b *Bank) materializeQuestions() []domain.Question {
	questions := lo.Map(b.bank.Questions, func(q domain.Question, _ int) domain.Question {
		q.Options = append([]string(nil), q.Options...)
		return q
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bank.ShuffleQuestions {
		b.rnd.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	if b.bank.ShuffleAnswers {
		for i := range questions {
			shuffleOptions(b.rnd, &questions[i])
		}
	}
	return questions
}

// shuffleOptions permutes the options in place and moves Correct along with the option it
// pointed at, so duplicate option texts cannot confuse the lookup.
func shuffleOptions(rnd *rand.Rand, q *domain.Question) {
	order := rnd.Perm(len(q.Options))
	shuffled := lo.Map(order, func(from int, _ int) string {
		return q.Options[from]
	})
	q.Correct = lo.IndexOf(order, q.Correct)
	q.Options = shuffled
}

// BankLoader fetches a question bank definition from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}
