package service

import "errors"

// Engine errors. Handlers map these onto API error codes; everything else
// bubbles up as an internal error.
var (
	ErrNotAssigned       = errors.New("test is not assigned to this student")
	ErrTestUnavailable   = errors.New("test is not available")
	ErrAlreadyCompleted  = errors.New("test has already been completed")
	ErrAlreadyInProgress = errors.New("an attempt is already in progress")
	ErrNoQuestions       = errors.New("test has no questions")
	ErrSessionExpired    = errors.New("exam session has expired")
	ErrInvalidPosition   = errors.New("question position is out of range")
	ErrUnknownQuestion   = errors.New("question does not belong to this session")
	ErrInvalidAnswer     = errors.New("selected answer is not a valid option")
	ErrDecryptionFailed  = errors.New("question content could not be decrypted")
)
