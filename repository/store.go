package repository

import (
	"context"

	"ai-interviewer/domain"
)

// Store is the persistence boundary for the interview workflow. Multi-entity
// writes go through InTx so partial writes (a Question row without its linking
// SessionQuestion) cannot happen.
type Store interface {
	// InTx runs fn against a transaction-bound Store and commits on nil.
	InTx(ctx context.Context, fn func(Store) error) error

	CreateResume(ctx context.Context, r *domain.Resume) error
	GetResume(ctx context.Context, id uint) (*domain.Resume, error)
	SetResumeText(ctx context.Context, id uint, text string) error

	// GetOrCreateQuestion deduplicates by exact text atomically; concurrent
	// identical generations resolve to the same row.
	GetOrCreateQuestion(ctx context.Context, text, skillTag string, difficulty int) (*domain.Question, error)
	ListQuestions(ctx context.Context) ([]domain.Question, error)

	CreateSession(ctx context.Context, s *domain.InterviewSession) error
	GetSession(ctx context.Context, id uint) (*domain.InterviewSession, error)
	// SessionForUpdate loads the session under an exclusive row lock, serializing
	// concurrent AskNextQuestion/SubmitAnswer triggers for the session.
	SessionForUpdate(ctx context.Context, id uint) (*domain.InterviewSession, error)
	SaveSession(ctx context.Context, s *domain.InterviewSession) error

	CreateSessionQuestion(ctx context.Context, sq *domain.SessionQuestion) error
	GetSessionQuestion(ctx context.Context, id uint) (*domain.SessionQuestion, error)
	SaveSessionQuestion(ctx context.Context, sq *domain.SessionQuestion) error
	// OpenQuestion returns the session's unanswered row, or nil when none exists.
	OpenQuestion(ctx context.Context, sessionID uint) (*domain.SessionQuestion, error)
	// SessionQuestionsBySession returns rows ordered by ask time with their
	// Question preloaded (nil for deleted questions).
	SessionQuestionsBySession(ctx context.Context, sessionID uint) ([]domain.SessionQuestion, error)
	CountSessionQuestions(ctx context.Context, sessionID uint) (int64, error)

	CreateVideoRecording(ctx context.Context, v *domain.VideoRecording) error
	GetVideoRecording(ctx context.Context, id uint) (*domain.VideoRecording, error)
	VideoBySession(ctx context.Context, sessionID uint) (*domain.VideoRecording, error)
	MarkVideoProcessed(ctx context.Context, id uint) error

	CreateCheatingFlag(ctx context.Context, f *domain.CheatingFlag) error
	FlagsBySession(ctx context.Context, sessionID uint) ([]domain.CheatingFlag, error)
	CountFlagsBySession(ctx context.Context, sessionID uint) (int64, error)

	// UpsertFeedback replaces any prior feedback for the session wholesale.
	UpsertFeedback(ctx context.Context, f *domain.Feedback) error
	FeedbackBySession(ctx context.Context, sessionID uint) (*domain.Feedback, error)
}
