package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Prompt  string   `json:"prompt" yaml:"prompt" validate:"required"`
	Options []string `json:"options" yaml:"options" validate:"min=2,dive,required"`
	Correct int      `json:"correct" yaml:"correct" validate:"gte=0"`
}

// CorrectOption returns the text of the correct option.
func (q Question) CorrectOption() string {
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return ""
	}
	return q.Options[q.Correct]
}

// QuestionBank is the immutable test definition every session is materialized from.
type QuestionBank struct {
	Questions        []Question `json:"questions" yaml:"questions" validate:"min=1,dive"`
	ShuffleQuestions bool       `json:"shuffleQuestions" yaml:"shuffle_questions"`
	ShuffleAnswers   bool       `json:"shuffleAnswers" yaml:"shuffle_answers"`
	TimeLimitMinutes int        `json:"timeLimitMinutes" yaml:"time_limit_minutes" validate:"gt=0"`
}

// TimeLimit converts the configured minutes into a duration.
func (b QuestionBank) TimeLimit() time.Duration {
	return time.Duration(b.TimeLimitMinutes) * time.Minute
}

// Identity holds what the test-taker typed in before the test.
type Identity struct {
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Group     string `json:"group"`
}

// FullName renders "LastName FirstName".
func (i Identity) FullName() string {
	return strings.TrimSpace(i.LastName + " " + i.FirstName)
}

// State is a step of the per-user session state machine.
type State string

const (
	StateAwaitingLastName  State = "awaiting_last_name"
	StateAwaitingFirstName State = "awaiting_first_name"
	StateAwaitingGroup     State = "awaiting_group"
	StateTesting           State = "testing"
	StateFinished          State = "finished"
)

// SessionSnapshot is a read-only view of a session for callers outside the app layer.
type SessionSnapshot struct {
	UserID       int64
	AttemptID    string
	State        State
	Identity     Identity
	CurrentIndex int
	Score        int
	Total        int
}

// Result is produced once, when a session reaches StateFinished.
type Result struct {
	UserID    int64         `json:"userId"`
	AttemptID string        `json:"attemptId"`
	Identity  Identity      `json:"identity"`
	Score     int           `json:"score"`
	Total     int           `json:"total"`
	Percent   int           `json:"percent"`
	Elapsed   time.Duration `json:"elapsed"`
	TimedOut  bool          `json:"timedOut"`
	At        time.Time     `json:"at"`
}

// ScorePercent truncates score*100/total toward zero.
func ScorePercent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return score * 100 / total
}

// FormatClock renders a duration as zero-padded mm:ss.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Choice is one inline button: the visible label and the opaque token sent back on press.
type Choice struct {
	Label string
	Token string
}

// SendOptions tweak how the transport renders a plain message.
type SendOptions struct {
	// Preformatted asks the transport to render the text as a monospace block.
	Preformatted bool
}

const answerTokenPrefix = "answer"

// EncodeAnswerToken builds the callback payload for option optionIdx of question questionIdx.
func EncodeAnswerToken(questionIdx, optionIdx int) string {
	return answerTokenPrefix + "_" + strconv.Itoa(questionIdx) + "_" + strconv.Itoa(optionIdx)
}

// DecodeAnswerToken parses a payload produced by EncodeAnswerToken.
func DecodeAnswerToken(token string) (questionIdx, optionIdx int, err error) {
	parts := strings.Split(token, "_")
	if len(parts) != 3 || parts[0] != answerTokenPrefix {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	questionIdx, err = strconv.Atoi(parts[1])
	if err != nil || questionIdx < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	optionIdx, err = strconv.Atoi(parts[2])
	if err != nil || optionIdx < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	return questionIdx, optionIdx, nil
}
