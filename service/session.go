package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ai-interviewer/domain"
	"ai-interviewer/repository"
)

// Defaults for generated questions until the provider is asked to classify
// them itself.
const (
	defaultSkillTag   = "general"
	defaultDifficulty = 1
)

type StartSessionInput struct {
	CandidateName  string
	CandidateEmail string
	ResumeID       uint
}

// StartSession creates a pending session and synchronously requests its first
// question. When generation fails the session is kept (still pending, zero
// questions) and returned together with the error, so the caller can retry by
// re-invoking question generation for the same session.
func (s *Interview) StartSession(ctx context.Context, in StartSessionInput) (*domain.InterviewSession, error) {
	resume, err := s.store.GetResume(ctx, in.ResumeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: resume %d does not exist", domain.ErrValidation, in.ResumeID)
		}
		return nil, err
	}

	sess := &domain.InterviewSession{
		CandidateName:  in.CandidateName,
		CandidateEmail: in.CandidateEmail,
		ResumeID:       &resume.ID,
		Status:         domain.SessionPending,
		StartedAt:      s.now(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("session created", zap.Uint("session_id", sess.ID))

	if _, err := s.AskNextQuestion(ctx, sess.ID); err != nil {
		s.logger.Error("first question generation failed",
			zap.Uint("session_id", sess.ID), zap.Error(err))
		return sess, err
	}
	return sess, nil
}

// AskNextQuestion generates and persists the session's next question. It
// fails with ErrOpenQuestionExists while an unanswered question is pending;
// the invariant is re-checked under the session row lock so two concurrent
// triggers cannot both create one.
func (s *Interview) AskNextQuestion(ctx context.Context, sessionID uint) (*domain.SessionQuestion, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == domain.SessionCompleted {
		return nil, fmt.Errorf("%w: session %d is completed", domain.ErrValidation, sessionID)
	}

	// Cheap pre-check before paying for a provider call.
	open, err := s.store.OpenQuestion(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, domain.ErrOpenQuestionExists
	}

	resumeText := ""
	if sess.ResumeID != nil {
		resume, err := s.store.GetResume(ctx, *sess.ResumeID)
		if err == nil && resume.ExtractedText != nil {
			resumeText = *resume.ExtractedText
		}
	}

	transcript, err := s.transcript(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	questionText, err := s.generator.GenerateQuestion(ctx, resumeText, transcript)
	if err != nil {
		return nil, fmt.Errorf("generate question for session %d: %w", sessionID, err)
	}

	var created *domain.SessionQuestion
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		locked, err := tx.SessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if locked.Status == domain.SessionCompleted {
			return fmt.Errorf("%w: session %d is completed", domain.ErrValidation, sessionID)
		}
		open, err := tx.OpenQuestion(ctx, sessionID)
		if err != nil {
			return err
		}
		if open != nil {
			return domain.ErrOpenQuestionExists
		}

		question, err := tx.GetOrCreateQuestion(ctx, questionText, defaultSkillTag, defaultDifficulty)
		if err != nil {
			return err
		}

		sq := &domain.SessionQuestion{
			SessionID:  sessionID,
			QuestionID: &question.ID,
			AskedAt:    s.now(),
		}
		if err := tx.CreateSessionQuestion(ctx, sq); err != nil {
			return err
		}

		if locked.Status == domain.SessionPending {
			locked.Status = domain.SessionInProgress
			if err := tx.SaveSession(ctx, locked); err != nil {
				return err
			}
		}

		sq.Question = question
		created = sq
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("question asked",
		zap.Uint("session_id", sessionID), zap.Uint("session_question_id", created.ID))
	return created, nil
}

// SubmitAnswer records the candidate's answer and hands the row off to the
// evaluation pipeline. Answering an already-answered question is rejected and
// leaves the prior answer untouched.
func (s *Interview) SubmitAnswer(ctx context.Context, sessionQuestionID uint, answerText string) (*domain.SessionQuestion, error) {
	if strings.TrimSpace(answerText) == "" {
		return nil, fmt.Errorf("%w: answer text is required", domain.ErrValidation)
	}

	var updated *domain.SessionQuestion
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		sq, err := tx.GetSessionQuestion(ctx, sessionQuestionID)
		if err != nil {
			return err
		}
		if _, err := tx.SessionForUpdate(ctx, sq.SessionID); err != nil {
			return err
		}
		// The first read only located the session. Re-read under the lock so
		// a submission that lost the race sees the winner's row, not a stale
		// unanswered copy.
		sq, err = tx.GetSessionQuestion(ctx, sessionQuestionID)
		if err != nil {
			return err
		}
		if sq.Answered() {
			return domain.ErrAlreadyAnswered
		}

		now := s.now()
		sq.AnswerText = &answerText
		sq.AnsweredAt = &now
		spent := now.Sub(sq.AskedAt).Milliseconds()
		sq.TimeSpentMS = &spent

		if err := tx.SaveSessionQuestion(ctx, sq); err != nil {
			return err
		}
		updated = sq
		return nil
	})
	if err != nil {
		return nil, err
	}

	task := Task{
		Kind:              TaskEvaluateAnswer,
		SessionID:         updated.SessionID,
		SessionQuestionID: updated.ID,
	}
	// The answer stays submitted even when evaluation cannot be triggered;
	// the score simply remains pending.
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		s.logger.Error("evaluation trigger failed",
			zap.Uint("session_question_id", updated.ID), zap.Error(err))
	}
	return updated, nil
}

func (s *Interview) transcript(ctx context.Context, sessionID uint) ([]domain.TranscriptEntry, error) {
	sqs, err := s.store.SessionQuestionsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.TranscriptEntry, 0, len(sqs))
	for _, sq := range sqs {
		text := "(question unavailable)"
		if sq.Question != nil {
			text = sq.Question.Text
		}
		entries = append(entries, domain.TranscriptEntry{
			Question: text,
			Answer:   sq.AnswerText,
		})
	}
	return entries, nil
}
