package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the bank shape: at least one question, every question with two or more
// non-empty options and a correct index inside them, and a positive time limit.
func (b QuestionBank) Validate() error {
	if len(b.Questions) == 0 {
		return ErrEmptyBank
	}
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("invalid question bank: %w", err)
	}
	for i, q := range b.Questions {
		if q.Correct >= len(q.Options) {
			return fmt.Errorf("question %d: %w", i+1, ErrCorrectOutOfRange)
		}
	}
	return nil
}
