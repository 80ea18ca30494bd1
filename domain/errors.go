package domain

import "errors"

// Error taxonomy for the interview workflow. Callers classify with errors.Is;
// everything else wraps one of these sentinels.
var (
	// ErrConfiguration means the operator must fix credentials. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrProviderUnavailable covers provider timeouts and transport failures.
	// The whole triggering operation is safe to retry.
	ErrProviderUnavailable = errors.New("generation provider unavailable")

	// ErrGenerationParse means the provider returned output that does not match
	// the requested structure. Not auto-retried.
	ErrGenerationParse = errors.New("generation output unparseable")

	// ErrOpenQuestionExists rejects generating a question while an unanswered
	// one is pending for the session.
	ErrOpenQuestionExists = errors.New("session already has an open question")

	ErrAlreadyAnswered  = errors.New("session question already answered")
	ErrAlreadyEvaluated = errors.New("session question already evaluated")

	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)
