package attempt

import "errors"

var (
	// ErrOutOfSequence: the participant asked for a step other than
	// their current one. User error, recoverable.
	ErrOutOfSequence = errors.New("step out of sequence")

	// ErrNotConfigured: the step exists but carries no assessment.
	ErrNotConfigured = errors.New("no assessment configured for step")

	// ErrQuestionNotInAttempt: the requested question is absent from
	// the attempt's persisted order (stale or foreign link).
	ErrQuestionNotInAttempt = errors.New("question not part of attempt")

	// ErrInvalidAnswer: the answer payload does not fit the question
	// (missing text, or an option from another question).
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrInvalidAttemptState: the operation is not legal from the
	// attempt's current status (duplicate finalize, review of a
	// non-submitted attempt). No mutation happened.
	ErrInvalidAttemptState = errors.New("invalid attempt state")

	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrParticipantNotFound = errors.New("participant not found")
)
