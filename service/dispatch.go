package service

import (
	"context"
	"fmt"

	"ai-interviewer/domain"
)

// TaskKind names a deferred unit of work.
type TaskKind string

const (
	TaskEvaluateAnswer TaskKind = "evaluate_answer"
	TaskProcessVideo   TaskKind = "process_video"
)

// Task is one unit of work. The state machine only decides what to run;
// whether it runs inline or on a queue is a deployment choice, and the
// workflow invariants hold either way.
type Task struct {
	Kind              TaskKind `json:"kind"`
	SessionID         uint     `json:"session_id,omitempty"`
	SessionQuestionID uint     `json:"session_question_id,omitempty"`
	RecordingID       uint     `json:"recording_id,omitempty"`
}

// Dispatcher hands a task off for execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}

// InlineDispatcher executes tasks synchronously in the caller's goroutine.
type InlineDispatcher struct {
	svc *Interview
}

func NewInlineDispatcher(svc *Interview) *InlineDispatcher {
	return &InlineDispatcher{svc: svc}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, task Task) error {
	return d.svc.RunTask(ctx, task)
}

// RunTask routes a consumed task to its handler. Queue consumers and the
// inline dispatcher share this entry point.
func (s *Interview) RunTask(ctx context.Context, task Task) error {
	switch task.Kind {
	case TaskEvaluateAnswer:
		return s.EvaluateAnswer(ctx, task.SessionQuestionID)
	case TaskProcessVideo:
		return s.ProcessVideo(ctx, task.RecordingID)
	default:
		return fmt.Errorf("%w: unknown task kind %q", domain.ErrValidation, task.Kind)
	}
}
