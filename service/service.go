package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ai-interviewer/domain"
	"ai-interviewer/repository"
)

// Generator is the external question-generation provider. Implementations
// perform one provider call per invocation; retry policy stays with callers.
type Generator interface {
	GenerateQuestion(ctx context.Context, resumeText string, transcript []domain.TranscriptEntry) (string, error)
	EvaluateAnswer(ctx context.Context, questionText, answerText string) (domain.Evaluation, error)
}

// Scanner is the external video integrity-scan capability.
type Scanner interface {
	ScanVideo(ctx context.Context, videoRef string) ([]domain.Finding, error)
}

// Interview orchestrates the session progression engine: the state machine,
// answer evaluation, integrity scanning and feedback aggregation.
type Interview struct {
	store      repository.Store
	generator  Generator
	scanner    Scanner
	dispatcher Dispatcher
	logger     *zap.Logger

	// maxQuestions caps questions per session; 0 means unlimited.
	maxQuestions int

	now func() time.Time
}

// Deps carries the collaborators for NewInterview. Dispatcher may be nil, in
// which case units of work run inline.
type Deps struct {
	Store        repository.Store
	Generator    Generator
	Scanner      Scanner
	Dispatcher   Dispatcher
	Logger       *zap.Logger
	MaxQuestions int
	Now          func() time.Time
}

func NewInterview(deps Deps) *Interview {
	svc := &Interview{
		store:        deps.Store,
		generator:    deps.Generator,
		scanner:      deps.Scanner,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		maxQuestions: deps.MaxQuestions,
		now:          deps.Now,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.dispatcher == nil {
		svc.dispatcher = &InlineDispatcher{svc: svc}
	}
	return svc
}
