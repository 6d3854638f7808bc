package domain

import "errors"

var (
	// ErrSessionNotFound is returned when an attempt id does not map to a live session.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrExamNotFound indicates the exam content could not be loaded.
	ErrExamNotFound = errors.New("exam not found")
	// ErrInvalidExam indicates loaded exam content breaks a structural rule.
	ErrInvalidExam = errors.New("invalid exam")
	// ErrInvalidQuestion indicates a question cannot be used in a session.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrOptionOutOfRange is a caller contract violation: the option index does not exist.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrPositionOutOfRange is a caller contract violation: the question index does not exist.
	ErrPositionOutOfRange = errors.New("question index out of range")
)
