package domain

import "errors"

var (
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrEmptyBank indicates a bank without questions.
	ErrEmptyBank = errors.New("question bank has no questions")
	// ErrMalformedToken indicates a button payload that is not an answer token.
	ErrMalformedToken = errors.New("malformed answer token")
	// ErrCorrectOutOfRange indicates a question whose correct index does not point at an option.
	ErrCorrectOutOfRange = errors.New("correct option index out of range")
)
